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

package gradient

import (
	"sync"
)

// Pools of constant sized sample arrays, to reduce allocation overhead when
// fields of the same size are built repeatedly
var poolSample = struct {
	sync.RWMutex
	m map[int]*sync.Pool
}{m: make(map[int]*sync.Pool)}

// Returns a pool for []Sample arrays of the given size
func getSizedPoolSample(size int) *sync.Pool {
	poolSample.RLock()
	pool := poolSample.m[size]
	poolSample.RUnlock()
	if pool != nil {
		return pool
	}
	poolSample.Lock()
	defer poolSample.Unlock()
	if pool = poolSample.m[size]; pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]Sample, size)
			},
		}
		poolSample.m[size] = pool
	}
	return pool
}

// Retrieves an array of given size from the pool. Contents are undefined
func getSamples(size int) []Sample {
	return getSizedPoolSample(size).Get().([]Sample)
}

// Returns an array to the pool
func putSamples(arr []Sample) {
	getSizedPoolSample(cap(arr)).Put(arr[:cap(arr)])
}
