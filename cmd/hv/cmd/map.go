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
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().Uint64P("at", "a", 0, "guest-physical address to map at (defaults to the space's base)")
	mapCmd.Flags().Uint64P("size", "s", 0x1000, "size in bytes to map")
	mapCmd.Flags().Bool("populate", false, "eagerly allocate frames instead of mapping lazily")
	mapCmd.Flags().Bool("write", true, "map with write permission")
	mapCmd.Flags().Bool("exec", false, "map with execute permission")
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map an alloc-backed region into a fresh address space and report the result",
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
		mapSize, err := cmd.Flags().GetUint64("size")
		if err != nil {
			return err
		}
		populate, err := cmd.Flags().GetBool("populate")
		if err != nil {
			return err
		}
		write, err := cmd.Flags().GetBool("write")
		if err != nil {
			return err
		}
		exec, err := cmd.Flags().GetBool("exec")
		if err != nil {
			return err
		}

		arena, err := newHostArena(256)
		if err != nil {
			return err
		}
		defer arena.Close()

		as, err := nptcore.NewEmpty(addr.GuestPhysAddr(base), size, arena)
		if err != nil {
			return err
		}
		defer as.Clear()

		flags := npt.FlagRead
		if write {
			flags |= npt.FlagWrite
		}
		if exec {
			flags |= npt.FlagExecute
		}

		if err := as.MapAlloc(addr.GuestPhysAddr(at), mapSize, flags, populate); err != nil {
			color.Red("map failed: %v", err)
			return err
		}

		color.Green("mapped %#x bytes at guest %#x (populate=%v, flags=%v)", mapSize, at, populate, flags)
		pa, fl, pgSize, ok := as.Translate(addr.GuestPhysAddr(at))
		if ok {
			fmt.Printf("  translate(%#x) -> host %#x, size %d, flags %v\n", at, pa, pgSize, fl)
		} else {
			fmt.Printf("  translate(%#x) -> unmapped (expected for a lazy, unfaulted region)\n", at)
		}
		return nil
	},
}
