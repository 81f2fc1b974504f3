// Package template expands placeholders in configured paths.
package template

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Expand expands template placeholders in the input string.
//
// Supported placeholders:
//
//	{home}      - Current user's home directory
//	{date}      - Current date in YYYY-MM-DD format
//	{time}      - Current time in HH-MM-SS format
//	{unix}      - Current Unix timestamp
//	{user}      - Current username
//	{hostname}  - System hostname without domain
//	{arch}      - System architecture (e.g., amd64, arm64)
//
// Custom values can be provided via the vars map, which will override
// built-in placeholders. Unknown placeholders are left untouched.
func Expand(text string, vars map[string]string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	now := time.Now()

	placeholders := map[string]string{
		"date": now.Format("2006-01-02"),
		"time": now.Format("15-04-05"),
		"unix": fmt.Sprintf("%d", now.Unix()),
		"arch": runtime.GOARCH,
	}

	if u, err := user.Current(); err == nil {
		placeholders["user"] = u.Username
	} else {
		placeholders["user"] = "unknown"
	}

	if h, err := os.Hostname(); err == nil {
		placeholders["hostname"] = strings.Split(h, ".")[0]
	} else {
		placeholders["hostname"] = "unknown"
	}

	if home, err := os.UserHomeDir(); err == nil {
		placeholders["home"] = home
	}

	for k, v := range vars {
		placeholders[k] = v
	}

	result := text
	for key, value := range placeholders {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}

// ExpandPath expands placeholders and a leading "~" in a filesystem path
// and cleans the result. An empty path stays empty.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return filepath.Clean(Expand(path, nil))
}
