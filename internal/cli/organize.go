package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/progress"
	"github.com/jvs-project/tidy/pkg/tidy"
)

var (
	organizePath      string
	organizeRecursive bool
	organizeDepth     int
)

var organizeCmd = &cobra.Command{
	Use:   "organize [path]",
	Short: "Sort a directory into category folders",
	Long: `Sort the files of a directory into category folders.

A folder is created for every category, then each non-hidden file is moved
into the folder for its extension. Name collisions get a "(1)" style suffix.
Everything the run does is written to a change ledger in the log directory;
"tidy revert" undoes it.

With --recursive every subdirectory is organized too, except the category
folders of the directory being organized. --depth bounds how far down it
goes and has no effect without --recursive.

Examples:
  tidy organize                    # Organize default_path from the config
  tidy organize ~/Downloads
  tidy organize ~/Downloads -r     # Include subdirectories
  tidy organize ~/Downloads -r -d 2  # At most two levels down`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		path := organizePath
		if len(args) == 1 {
			path = args[0]
		}
		depth := walkDepth(organizeRecursive, organizeDepth)

		term := progress.NewCountingTerminal(os.Stderr, "Organizing", progressEnabled())
		res, err := client.Organize(context.Background(), tidy.OrganizeOptions{
			Path:  path,
			Depth: depth,
			OnMove: func(_, _ string) {
				term.Increment()
			},
		})
		term.Done("")
		if res == nil {
			exitErr("organize", err)
		}

		if jsonOutput {
			outputJSON(res)
			if err != nil || len(res.Failures) > 0 {
				os.Exit(1)
			}
			return
		}

		if err != nil {
			fmtErr("organize: %v", err)
		}
		printOrganizeResult(res)
		if err != nil || len(res.Failures) > 0 {
			os.Exit(1)
		}
	},
}

// walkDepth maps the organize flags to a walker depth: 0 without
// --recursive, otherwise depth where negative is unbounded.
func walkDepth(recursive bool, depth int) int {
	if !recursive {
		return 0
	}
	return depth
}

func printOrganizeResult(res *tidy.OrganizeResult) {
	fmt.Printf("Organized %s\n", color.Path(res.BasePath))
	fmt.Printf("  Files moved:     %d\n", res.FilesMoved)
	fmt.Printf("  Folders created: %d\n", res.FoldersCreated)
	if res.DirsVisited > 1 {
		fmt.Printf("  Directories:     %d\n", res.DirsVisited)
	}
	if len(res.Failures) > 0 {
		fmt.Println(color.Warningf("  Failures:        %d", len(res.Failures)))
		for _, f := range res.Failures {
			target := ""
			if f.Target != "" {
				target = " -> " + f.Target
			}
			fmt.Printf("    [%s] %s %s%s: %s\n", f.Code, f.Op, f.Path, target, f.Detail)
		}
	}
	if res.Artifact != "" {
		fmt.Printf("Change ledger: %s\n", color.Path(res.Artifact))
		fmt.Println(color.Dim("Undo with: tidy revert --latest"))
	}
}

func init() {
	organizeCmd.Flags().StringVarP(&organizePath, "path", "p", "", "directory to organize (default from config)")
	organizeCmd.Flags().BoolVarP(&organizeRecursive, "recursive", "r", false, "organize subdirectories too")
	organizeCmd.Flags().IntVarP(&organizeDepth, "depth", "d", -1, "with --recursive, subdirectory levels to descend (-1 = unbounded)")
	rootCmd.AddCommand(organizeCmd)
}
