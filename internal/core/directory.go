package core

import (
	"cmp"
	"slices"
	"sync"
)

// RoomCount pairs a room with its member count.
type RoomCount struct {
	RoomID int64
	Count  int
}

func byRoomID(a, b RoomCount) int {
	return cmp.Compare(a.RoomID, b.RoomID)
}

// Directory maps rooms to the session ids joined to them.
// A room entry is deleted as soon as its last member leaves.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[int64]map[string]struct{} // room -> session ids
	joined map[string]map[int64]struct{} // session id -> rooms
}

// NewDirectory creates an empty room directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[int64]map[string]struct{}),
		joined: make(map[string]map[int64]struct{}),
	}
}

// Join adds id to roomID and returns the resulting member count. Joining twice is a no-op.
func (d *Directory) Join(roomID int64, id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[roomID] = members
	}
	members[id] = struct{}{}

	rooms, ok := d.joined[id]
	if !ok {
		rooms = make(map[int64]struct{})
		d.joined[id] = rooms
	}
	rooms[roomID] = struct{}{}

	return len(members)
}

// Leave removes id from roomID and returns the resulting member count.
// Leaving a room one is not in, or an untracked room, returns the current size.
func (d *Directory) Leave(roomID int64, id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeLocked(roomID, id)
	return len(d.rooms[roomID])
}

// LeaveAll removes id from every room it joined and reports the new count of each, ordered by room id.
func (d *Directory) LeaveAll(id string) []RoomCount {
	d.mu.Lock()
	defer d.mu.Unlock()

	rooms := d.joined[id]
	if len(rooms) == 0 {
		return nil
	}

	out := make([]RoomCount, 0, len(rooms))
	for roomID := range rooms {
		if d.removeLocked(roomID, id) {
			out = append(out, RoomCount{RoomID: roomID, Count: len(d.rooms[roomID])})
		}
	}
	slices.SortFunc(out, byRoomID)
	return out
}

// removeLocked drops id from roomID in both indexes. Returns true if membership changed.
func (d *Directory) removeLocked(roomID int64, id string) bool {
	members, ok := d.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[id]; !ok {
		return false
	}
	delete(members, id)
	if len(members) == 0 {
		delete(d.rooms, roomID)
	}

	if rooms, ok := d.joined[id]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(d.joined, id)
		}
	}
	return true
}

// Members returns a snapshot of the session ids in roomID.
func (d *Directory) Members(roomID int64) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Count returns the member count of roomID and whether the room is tracked.
func (d *Directory) Count(roomID int64) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members, ok := d.rooms[roomID]
	return len(members), ok
}

// RoomsOf returns the rooms id has joined, ascending.
func (d *Directory) RoomsOf(id string) []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]int64, 0, len(d.joined[id]))
	for roomID := range d.joined[id] {
		out = append(out, roomID)
	}
	slices.Sort(out)
	return out
}

// Rooms returns every non-empty room with its count, ascending by room id.
func (d *Directory) Rooms() []RoomCount {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]RoomCount, 0, len(d.rooms))
	for roomID, members := range d.rooms {
		out = append(out, RoomCount{RoomID: roomID, Count: len(members)})
	}
	slices.SortFunc(out, byRoomID)
	return out
}

// Len returns the number of non-empty rooms.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
