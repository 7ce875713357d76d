package pe

// recordArray is a fixed-stride sequence of records over a shared buffer.
// decode and encode translate one record at a view; nothing is cached.
type recordArray[T any] struct {
	v      view
	length int
	stride int
	decode func(view) T
	encode func(view, T)
}

func (a recordArray[T]) Len() int { return a.length }

// Size is the byte size of the whole array.
func (a recordArray[T]) Size() int { return a.length * a.stride }

func (a recordArray[T]) Get(i int) T {
	return a.decode(a.v.at(i * a.stride))
}

func (a recordArray[T]) Set(i int, rec T) {
	a.encode(a.v.at(i*a.stride), rec)
}

// All decodes every record into a fresh slice.
func (a recordArray[T]) All() []T {
	out := make([]T, a.length)
	for i := range out {
		out[i] = a.Get(i)
	}
	return out
}
