package pathutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/jvs-project/tidy/pkg/fsutil"
)

// SplitExt splits path into stem and extension. The extension starts at the
// last dot of the final path element; leading dots of that element never start
// an extension, so ".bashrc" has none and "a.tar.gz" yields ".gz".
func SplitExt(path string) (stem, ext string) {
	base := path
	if i := strings.LastIndexAny(path, `/`+string(os.PathSeparator)); i >= 0 {
		base = path[i+1:]
	}
	leading := len(base) - len(strings.TrimLeft(base, "."))
	dot := strings.LastIndexByte(base, '.')
	if dot < leading {
		return path, ""
	}
	cut := len(path) - len(base) + dot
	return path[:cut], path[cut:]
}

// UniquePath returns desired when nothing exists there, otherwise the first
// free candidate of the form stem(k)ext for k = 1, 2, ...
// Nothing is reserved: the result is only free at the time of the check.
func UniquePath(desired string) string {
	if !fsutil.Exists(desired) {
		return desired
	}
	stem, ext := SplitExt(desired)
	for k := 1; ; k++ {
		candidate := stem + "(" + strconv.Itoa(k) + ")" + ext
		if !fsutil.Exists(candidate) {
			return candidate
		}
	}
}
