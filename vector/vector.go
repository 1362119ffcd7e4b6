/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package vector implements the ordered owning collection the build logger
// keeps arguments and source files in.
package vector

import "reflect"

const (
	defaultCapacity = 10
	NotFound        = -1
)

type AddResult int

const (
	Added AddResult = iota
	Duplicate
	Rejected
)

// Vector owns its elements. Every element leaving the vector through EraseAt,
// EraseIf or Clear is passed to the release hook exactly once. Slices returned
// by Items are invalidated by the next mutating call.
type Vector[T any] struct {
	items   []T
	release func(T)
}

// New creates an empty vector. A non-positive capacity means the default of
// ten elements. release may be nil.
func New[T any](capacity int, release func(T)) *Vector[T] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Vector[T]{items: make([]T, 0, capacity), release: release}
}

// From builds a vector holding a copy of items.
func From[T any](items []T, release func(T)) *Vector[T] {
	v := New[T](len(items), release)
	v.items = append(v.items, items...)
	return v
}

func (v *Vector[T]) Len() int {
	return len(v.items)
}

func (v *Vector[T]) Cap() int {
	return cap(v.items)
}

func (v *Vector[T]) At(i int) T {
	return v.items[i]
}

func (v *Vector[T]) Items() []T {
	return v.items
}

// reserve makes room for n more elements, doubling the capacity as needed.
func (v *Vector[T]) reserve(n int) {
	need := len(v.items) + n
	if need <= cap(v.items) {
		return
	}
	newCap := cap(v.items) * 2
	if newCap < defaultCapacity {
		newCap = defaultCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]T, len(v.items), newCap)
	copy(grown, v.items)
	v.items = grown
}

func isNil(item any) bool {
	if item == nil {
		return true
	}
	rv := reflect.ValueOf(item)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Add appends item. Nil pointers, maps, slices and interfaces are refused.
func (v *Vector[T]) Add(item T) bool {
	if isNil(item) {
		return false
	}
	v.reserve(1)
	v.items = append(v.items, item)
	return true
}

// AddUnique appends item unless an equal element is already stored, in which
// case the incoming item is released and Duplicate is returned.
func (v *Vector[T]) AddUnique(item T, equal func(a, b T) bool) AddResult {
	if isNil(item) {
		return Rejected
	}
	if v.Find(item, equal) != NotFound {
		if v.release != nil {
			v.release(item)
		}
		return Duplicate
	}
	v.Add(item)
	return Added
}

// AddFrom inserts copies of every element of src before position pos,
// keeping their order. Positions outside [0, Len()] mean the end. dup may be
// nil when T has value semantics.
func (v *Vector[T]) AddFrom(src *Vector[T], pos int, dup func(T) T) {
	if src == nil || src.Len() == 0 {
		return
	}
	if pos < 0 || pos > len(v.items) {
		pos = len(v.items)
	}
	n := src.Len()
	v.reserve(n)
	oldLen := len(v.items)
	v.items = v.items[:oldLen+n]
	copy(v.items[pos+n:], v.items[pos:oldLen])
	for i, item := range src.items {
		if dup != nil {
			item = dup(item)
		}
		v.items[pos+i] = item
	}
}

func (v *Vector[T]) Find(item T, equal func(a, b T) bool) int {
	return v.FindIf(func(other T) bool { return equal(other, item) })
}

func (v *Vector[T]) FindIf(pred func(T) bool) int {
	for i, item := range v.items {
		if pred(item) {
			return i
		}
	}
	return NotFound
}

// EraseAt removes the element at index i. Out of range indexes are ignored.
func (v *Vector[T]) EraseAt(i int) {
	if i < 0 || i >= len(v.items) {
		return
	}
	if v.release != nil {
		v.release(v.items[i])
	}
	copy(v.items[i:], v.items[i+1:])
	var zero T
	v.items[len(v.items)-1] = zero
	v.items = v.items[:len(v.items)-1]
}

// EraseIf removes every element matching pred and returns how many were
// removed.
func (v *Vector[T]) EraseIf(pred func(T) bool) int {
	removed := 0
	for i := v.FindIf(pred); i != NotFound; i = v.FindIf(pred) {
		v.EraseAt(i)
		removed++
	}
	return removed
}

// Clear releases all elements and drops the backing storage.
func (v *Vector[T]) Clear() {
	if v.release != nil {
		for _, item := range v.items {
			v.release(item)
		}
	}
	v.items = nil
}
