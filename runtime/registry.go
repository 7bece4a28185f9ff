package runtime

import (
	"geochat/contract"
	"geochat/domain"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[string]contract.Member

// Registry is the group registry of live connections.
// It is the only place where room membership is mutated.
type Registry struct {
	mu          sync.RWMutex
	memberRooms map[string]domain.RoomID // map member -> room
	roomMembers map[domain.RoomID]Set    // map room to members
}

func NewRegistry() *Registry {
	return &Registry{
		memberRooms: make(map[string]domain.RoomID),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// Join adds the member to the room. Joining the room it already belongs to is a no-op.
// A member belongs to one room at a time, so joining another room moves it.
// If the room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Join(roomID domain.RoomID, member contract.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := member.ID()
	if current, ok := r.memberRooms[id]; ok {
		if current == roomID {
			return
		}
		r.removeLocked(current, id)
	}

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][id] = member
	r.memberRooms[id] = roomID
}

// Leave removes the member from the room if it is there.
// Calling it for an absent member, twice, or for another room does nothing.
func (r *Registry) Leave(roomID domain.RoomID, member contract.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := member.ID()
	if current, ok := r.memberRooms[id]; !ok || current != roomID {
		return
	}
	r.removeLocked(roomID, id)
}

// removeLocked ensures no empty sets are left in the room map
// to prevent memory leaks over time. Caller holds the write lock.
func (r *Registry) removeLocked(roomID domain.RoomID, id string) {
	delete(r.memberRooms, id)
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}

// MembersOf returns a copy of the members present in the room, taken under a
// single read lock. Callers may iterate it while joins and leaves continue.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) MembersOf(roomID domain.RoomID) []contract.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	snapshot := make([]contract.Member, 0, len(members))
	for _, member := range members {
		snapshot = append(snapshot, member)
	}
	return snapshot
}

// Count returns the number of connected members across all rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memberRooms)
}
