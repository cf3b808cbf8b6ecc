// Package arena assigns data offsets inside a shared segment.
//
// The allocator is a bump pointer derived from the registry itself: the next
// offset is the highest end of any registered variable (or the header size
// when nothing is registered), rounded up to DefaultAlignment. There is no
// free list. A variable that outgrows its slot gets a new one and the old
// bytes stay orphaned until the segment is recreated.
//
// Because the cursor is recomputed from the registry on every call, two
// processes sharing a segment agree on it without extra state.
package arena
