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
	"github.com/blacktop/go-nptcore"
	"github.com/blacktop/go-nptcore/addr"
	"github.com/blacktop/go-nptcore/npt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cloneCmd)
	cloneCmd.Flags().Bool("cow", false, "attempt a copy-on-write clone instead of a deep clone")
}

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone a populated address space and verify the two no longer share frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, size, err := guestRangeFlags(cmd)
		if err != nil {
			return err
		}
		cow, err := cmd.Flags().GetBool("cow")
		if err != nil {
			return err
		}

		srcArena, err := newHostArena(64)
		if err != nil {
			return err
		}
		defer srcArena.Close()
		dstArena, err := newHostArena(64)
		if err != nil {
			return err
		}
		defer dstArena.Close()

		as, err := nptcore.NewEmpty(addr.GuestPhysAddr(base), size, srcArena)
		if err != nil {
			return err
		}
		defer as.Clear()

		if err := as.MapAlloc(addr.GuestPhysAddr(base), 0x1000, npt.FlagRead|npt.FlagWrite, true); err != nil {
			return err
		}
		var marker uint64 = 0x1122334455667788
		if err := nptcore.WriteObj(as, addr.GuestPhysAddr(base), &marker); err != nil {
			return err
		}

		if cow {
			_, err := as.CloneCOW()
			color.Red("CloneCOW: %v", err)
			return nil
		}

		clone, err := as.Clone(dstArena)
		if err != nil {
			return err
		}
		defer clone.Clear()

		var got uint64
		if err := nptcore.ReadObj(clone, addr.GuestPhysAddr(base), &got); err != nil {
			return err
		}
		if got != marker {
			color.Red("clone did not preserve contents: got %#x, want %#x", got, marker)
			return nil
		}

		var flipped uint64 = ^marker
		if err := nptcore.WriteObj(clone, addr.GuestPhysAddr(base), &flipped); err != nil {
			return err
		}
		var stillOriginal uint64
		if err := nptcore.ReadObj(as, addr.GuestPhysAddr(base), &stillOriginal); err != nil {
			return err
		}
		if stillOriginal != marker {
			color.Red("writing through the clone leaked into the source")
			return nil
		}
		color.Green("clone isolated: source still reads %#x after the clone was rewritten to %#x", stillOriginal, flipped)
		return nil
	},
}
