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

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hv",
	Short: "Inspect and exercise a nested page table address space",
	Long: `hv drives a synthetic AddrSpace over host memory obtained from an
mmap-backed allocator: every subcommand builds its own address space,
maps some regions into it, and reports what the nested page table engine
actually did.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Uint64P("guest-base", "g", 0x10000, "guest-physical base address of the address space")
	rootCmd.PersistentFlags().Uint64P("guest-size", "G", 0x100000, "guest-physical size of the address space")
}

func guestRangeFlags(cmd *cobra.Command) (base uint64, size uint64, err error) {
	base, err = cmd.Flags().GetUint64("guest-base")
	if err != nil {
		return 0, 0, err
	}
	size, err = cmd.Flags().GetUint64("guest-size")
	if err != nil {
		return 0, 0, err
	}
	return base, size, nil
}
