/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/blacktop/go-nptcore/frame"
	"github.com/blacktop/go-nptcore/npt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the host environment this core's frame granule assumptions rely on",
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSize := frame.NativePageSize()
		if pageSize == int(npt.Size4K) {
			color.Green("host page size: %d bytes (matches the 4 KiB frame granule)", pageSize)
		} else {
			color.Yellow("host page size: %d bytes (core always frames in 4 KiB units regardless)", pageSize)
		}

		env := os.Getenv("NPTCORE_ENV")
		if env == "" {
			env = "(unset, detailed errors)"
		}
		fmt.Printf("NPTCORE_ENV: %s\n", env)

		if debug := os.Getenv("NPTCORE_DEBUG"); debug != "" {
			fmt.Printf("NPTCORE_DEBUG: %s\n", debug)
		}

		if _, err := newHostArena(1); err != nil {
			color.Red("mmap-backed test arena unavailable: %v", err)
			return err
		}
		color.Green("mmap-backed frame allocator: ok")
		return nil
	},
}
