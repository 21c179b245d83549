package plist

// Entity is an item that records its own id.
type Entity interface {
	ID() int
	SetID(id int)
}

// IDList stamps each added item with the id it was stored under.
type IDList[T Entity] struct {
	*List[T]
}

func NewIDList[T Entity](startCapacity, maxCapacity int, opts ...Option) *IDList[T] {
	return &IDList[T]{List: New[T](startCapacity, maxCapacity, opts...)}
}

func (l *IDList[T]) Add(item T) (int, error) {
	id, err := l.List.Add(item)
	if err != nil {
		return -1, err
	}
	item.SetID(id)
	return id, nil
}

// RemoveItem removes item by the id it carries.
func (l *IDList[T]) RemoveItem(item T) error {
	return l.List.Remove(item.ID())
}

// Destroyable is an entity that knows how to tear itself down. Destroy must
// release its slot, directly or through its owner.
type Destroyable interface {
	Entity
	Destroy()
}

// DestroyableList evicts the oldest live entry when it is full: the occupant
// of the slot about to be reused is destroyed before the new item takes it.
// This bounds the number of live objects regardless of churn.
type DestroyableList[T Destroyable] struct {
	*IDList[T]
}

func NewDestroyableList[T Destroyable](startCapacity, maxCapacity int, opts ...Option) *DestroyableList[T] {
	return &DestroyableList[T]{IDList: NewIDList[T](startCapacity, maxCapacity, opts...)}
}

// Add destroys the evicted occupant, if any, then stores item.
func (l *DestroyableList[T]) Add(item T) (int, error) {
	if l.FreeIDs() == 0 {
		if id, ok := l.cursorSlot(); ok && l.IsActive(id) {
			occupant := l.items[id]
			l.next = id + 1
			occupant.Destroy()
			if l.IsActive(id) {
				_ = l.List.Remove(id)
			}
		}
	}
	return l.IDList.Add(item)
}
