package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func tailCmd() *cobra.Command {
	var busDir string
	var n int
	var follow bool

	cmd := &cobra.Command{
		Use:   "tail <file>",
		Short: "print the last lines of a bus file (e.g. events.inbox.jsonl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if filepath.Dir(path) == "." {
				path = filepath.Join(busDir, path)
			}

			lines, err := lastLines(path, n)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			if !follow {
				return nil
			}
			return followFile(cmd.Context().Done(), path)
		},
	}
	cmd.Flags().StringVar(&busDir, "bus-dir", "ChatManager/bus", "bus directory")
	cmd.Flags().IntVarP(&n, "lines", "n", 20, "number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines as they're appended")
	return cmd
}

// lastLines reads path and returns up to n trailing lines (empty lines
// included); n <= 0 returns every line.
func lastLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	if n <= 0 || n >= len(all) {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// followFile polls path for new content every 200ms until done fires,
// printing each newly appended line (like `tail -f`, without inotify).
func followFile(done <-chan struct{}, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	reader := bufio.NewReader(f)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			for {
				line, err := reader.ReadString('\n')
				if line != "" {
					fmt.Print(line)
				}
				if err != nil {
					break
				}
			}
		}
	}
}
