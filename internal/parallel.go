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

package internal

// Rows are handed out to workers in batches of this many lines
const rowBatch = 16

// Calls fn for consecutive row ranges [from, to) covering [0, height), running at
// most threads ranges concurrently. Each range is disjoint, so fn may write its own
// output rows without locking. Returns when all ranges are done.
func ForEachRows(height, threads int, fn func(from, to int)) {
	if threads <= 1 || height <= rowBatch {
		fn(0, height)
		return
	}
	limiter := make(chan bool, threads)
	for from := 0; from < height; from += rowBatch {
		to := from + rowBatch
		if to > height {
			to = height
		}
		limiter <- true
		go func(from, to int) {
			defer func() { <-limiter }()
			fn(from, to)
		}(from, to)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
}
