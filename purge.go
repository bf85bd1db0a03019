// purge.go
//
// `mmbench purge`: delete or archive old output files.
// Selection is glob + age based; nothing is touched without --force or
// an interactive confirmation, and --dry-run previews the selection.

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var purgeFlags struct {
	pattern    string
	olderThan  int
	archive    bool
	archiveDir string
	dryRun     bool
	force      bool
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete or archive old result files",
	Long: `Remove result files matching a glob pattern, optionally filtered by age.

With --archive, files are moved into the archive directory instead of
deleted (name collisions get a numeric suffix). Without --force, the
selection is listed and confirmed interactively first.`,
	RunE: runPurge,
}

func init() {
	f := purgeCmd.Flags()
	f.StringVar(&purgeFlags.pattern, "pattern", "outputs/*.jsonl", "glob pattern of files to purge")
	f.IntVar(&purgeFlags.olderThan, "older-than", 0, "only files at least N days old (0 = all)")
	f.BoolVar(&purgeFlags.archive, "archive", false, "move files to the archive directory instead of deleting")
	f.StringVar(&purgeFlags.archiveDir, "archive-dir", "outputs/archive", "archive destination")
	f.BoolVar(&purgeFlags.dryRun, "dry-run", false, "list the selection without touching anything")
	f.BoolVar(&purgeFlags.force, "force", false, "skip the confirmation prompt")

	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	files, err := selectFiles(purgeFlags.pattern, purgeFlags.olderThan)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No matching files")
		return nil
	}

	verb, verbTitle := "delete", "Delete"
	if purgeFlags.archive {
		verb, verbTitle = "archive", "Archive"
	}
	fmt.Printf("Found %d file(s) to %s:\n", len(files), verb)
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		age := int(time.Since(info.ModTime()).Hours() / 24)
		fmt.Printf("  %-50s %10d bytes, %d days old\n", filepath.Base(f), info.Size(), age)
	}

	if purgeFlags.dryRun {
		fmt.Println("\n[dry run] no files were modified")
		return nil
	}
	if !purgeFlags.force && !confirm(fmt.Sprintf("\n%s these %d file(s)? [y/N]: ", verbTitle, len(files))) {
		fmt.Println("Aborted")
		return nil
	}

	if purgeFlags.archive {
		if err := os.MkdirAll(purgeFlags.archiveDir, 0o755); err != nil {
			return err
		}
	}
	for _, f := range files {
		if purgeFlags.archive {
			dest := archiveDest(purgeFlags.archiveDir, f)
			if err := os.Rename(f, dest); err != nil {
				return fmt.Errorf("archive %s: %w", f, err)
			}
			fmt.Printf("  Archived: %s -> %s\n", filepath.Base(f), dest)
		} else {
			if err := os.Remove(f); err != nil {
				return fmt.Errorf("delete %s: %w", f, err)
			}
			fmt.Printf("  Deleted: %s\n", filepath.Base(f))
		}
	}
	return nil
}

// selectFiles globs the pattern and filters by minimum age in days.
func selectFiles(pattern string, olderThanDays int) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	if olderThanDays <= 0 {
		return matches, nil
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var out []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

// archiveDest picks a collision-free destination path in the archive dir.
func archiveDest(dir, file string) string {
	base := filepath.Base(file)
	dest := filepath.Join(dir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
}

// confirm reads a yes/no answer from stdin.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
