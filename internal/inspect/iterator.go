package inspect

import (
	"errors"
	"iter"

	"dexspect/internal/dalvik"
)

// ErrNoSuchElement is returned by Next after the last element.
var ErrNoSuchElement = errors.New("inspect: no such element")

// InstructionIterator walks a method body once, front to back. It is
// not safe for concurrent use.
type InstructionIterator struct {
	insts []dalvik.Inst
	pos   int
}

// HasNext reports whether Next will return an instruction.
func (it *InstructionIterator) HasNext() bool { return it.pos < len(it.insts) }

// Next returns the next instruction or ErrNoSuchElement.
func (it *InstructionIterator) Next() (InstructionSubject, error) {
	if !it.HasNext() {
		return InstructionSubject{}, ErrNoSuchElement
	}
	s := InstructionSubject{inst: &it.insts[it.pos]}
	it.pos++
	return s, nil
}

// All yields the remaining instructions.
func (it *InstructionIterator) All() iter.Seq[InstructionSubject] {
	return func(yield func(InstructionSubject) bool) {
		for it.HasNext() {
			s, _ := it.Next()
			if !yield(s) {
				return
			}
		}
	}
}

// FilteredIterator yields the instructions of a source iterator that
// satisfy a predicate. HasNext looks one element ahead and caches it, so
// calling it repeatedly does not consume input.
type FilteredIterator struct {
	src     *InstructionIterator
	pred    func(InstructionSubject) bool
	next    InstructionSubject
	pending bool
}

// Filter wraps src. A nil pred accepts everything.
func Filter(src *InstructionIterator, pred func(InstructionSubject) bool) *FilteredIterator {
	if pred == nil {
		pred = func(InstructionSubject) bool { return true }
	}
	return &FilteredIterator{src: src, pred: pred}
}

// HasNext reports whether another matching instruction remains.
func (it *FilteredIterator) HasNext() bool {
	if it.pending {
		return true
	}
	for it.src.HasNext() {
		s, _ := it.src.Next()
		if it.pred(s) {
			it.next, it.pending = s, true
			return true
		}
	}
	return false
}

// Next returns the next matching instruction or ErrNoSuchElement.
func (it *FilteredIterator) Next() (InstructionSubject, error) {
	if !it.HasNext() {
		return InstructionSubject{}, ErrNoSuchElement
	}
	it.pending = false
	return it.next, nil
}

// All yields the remaining matching instructions.
func (it *FilteredIterator) All() iter.Seq[InstructionSubject] {
	return func(yield func(InstructionSubject) bool) {
		for it.HasNext() {
			s, _ := it.Next()
			if !yield(s) {
				return
			}
		}
	}
}

// Count consumes the iterator and returns how many instructions matched.
func (it *FilteredIterator) Count() int {
	n := 0
	for it.HasNext() {
		it.Next()
		n++
	}
	return n
}
