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

	"github.com/blacktop/go-nptcore"
	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/npt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(faultCmd)
	faultCmd.Flags().Uint64P("at", "a", 0, "guest-physical address to fault at (defaults to the space's base)")
	faultCmd.Flags().Bool("write", false, "fault on a write access instead of a read")
	faultCmd.Flags().Bool("verbose", false, "print the detailed form of any resulting error")
}

var faultCmd = &cobra.Command{
	Use:   "fault",
	Short: "Map a lazy region and trigger a page fault against it",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, size, err := guestRangeFlags(cmd)
		if err != nil {
			return err
		}
		at, err := cmd.Flags().GetUint64("at")
		if err != nil {
			return err
		}
		if at == 0 {
			at = base
		}
		write, err := cmd.Flags().GetBool("write")
		if err != nil {
			return err
		}
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}

		arena, err := newHostArena(64)
		if err != nil {
			return err
		}
		defer arena.Close()

		as, err := nptcore.NewEmpty(addr.GuestPhysAddr(base), size, arena)
		if err != nil {
			return err
		}
		defer as.Clear()

		if err := as.MapAlloc(addr.GuestPhysAddr(at), 0x1000, npt.FlagRead|npt.FlagWrite, false); err != nil {
			return err
		}

		access := npt.FlagRead
		if write {
			access |= npt.FlagWrite
		}

		if _, _, _, ok := as.Translate(addr.GuestPhysAddr(at)); ok {
			fmt.Printf("guest %#x already mapped before any fault was handled\n", at)
		}

		handled := as.HandlePageFault(addr.GuestPhysAddr(at), access)
		if handled {
			color.Green("fault at %#x handled", at)
		} else {
			color.Red("fault at %#x NOT handled", at)
		}

		pa, flags, pgSize, ok := as.Translate(addr.GuestPhysAddr(at))
		if ok {
			fmt.Printf("  now translates to host %#x, size %d, flags %v\n", pa, pgSize, flags)
		} else {
			fmt.Println("  still unmapped")
		}

		if verbose {
			if err := as.Protect(addr.GuestPhysAddr(at), 0x1000, npt.FlagRead); err != nil {
				if e, ok := err.(*nptcore.Error); ok {
					fmt.Println("  " + e.Verbose())
				} else {
					fmt.Println("  " + err.Error())
				}
			}
		}
		return nil
	},
}
