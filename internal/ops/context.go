// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ops

import (
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/mlnoga/rawedge/internal/raw"
	"github.com/pbnjay/memory"
)

// Approximate working set per pixel while an image moves through blur and edge detection:
// input, blurred copy, gradient field sample and edge map
const bytesPerPixel = 48

// An execution context for operators
type Context struct {
	Log        io.Writer
	MemoryMB   int    // memory.TotalMemory()/1024/1024
	MaxThreads int    `json:"maxThreads"`
	CPU        string // brand name and core counts, for log output
}

func NewContext(log io.Writer, maxThreads int) *Context {
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
	}
	return &Context{
		Log:        log,
		MemoryMB:   int(memory.TotalMemory() / 1024 / 1024),
		MaxThreads: maxThreads,
		CPU: fmt.Sprintf("%s with %d physical and %d logical cores",
			cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores),
	}
}

// Largest image header accepted when decoding, in pixels. Allows images using up to
// half of physical memory. Zero if the memory size is unknown, which disables the limit.
func (c *Context) MaxPixels() int64 {
	return int64(c.MemoryMB) * 1024 * 1024 / 2 / bytesPerPixel
}

// A raw decoder honoring the memory limit of this context
func (c *Context) Decoder() *raw.Decoder {
	return &raw.Decoder{MaxPixels: c.MaxPixels()}
}

// Writes a one line summary of the execution environment to the log
func (c *Context) LogEnvironment() {
	fmt.Fprintf(c.Log, "Using %d threads on %s, %d MB of physical memory, max %d pixels per image\n",
		c.MaxThreads, c.CPU, c.MemoryMB, c.MaxPixels())
}
