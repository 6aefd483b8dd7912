package service

import (
	"sync"
	"time"

	"mentor_chat/internal/domain"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

const subscriberBuffer = 64

// Snapshot is a consistent copy of the whole store.
type Snapshot struct {
	Rooms        []domain.Room               `json:"rooms"`
	ActiveRoomID string                      `json:"active_room_id,omitempty"`
	Messages     map[string][]domain.Message `json:"messages"`
	Notices      []domain.Notice             `json:"notices"`
}

type storeState struct {
	rooms        []domain.Room
	messages     map[string][]domain.Message
	activeRoomID string
	notices      []domain.Notice
}

func (st *storeState) indexOf(roomID string) int {
	for i := range st.rooms {
		if st.rooms[i].ID == roomID {
			return i
		}
	}
	return -1
}

// RoomStore is the session's single source of truth for rooms and messages.
// All state is owned by one goroutine; every mutation runs there as a whole,
// and every read returns a copy.
type RoomStore struct {
	userID  string
	backlog int
	log     logger.Logger

	ops       chan func(*storeState)
	done      chan struct{}
	closeOnce sync.Once

	subsMu  sync.Mutex
	subs    map[int]chan domain.Change
	nextSub int
}

func NewRoomStore(userID string, noticeBacklog int, log logger.Logger) *RoomStore {
	if noticeBacklog <= 0 {
		noticeBacklog = 20
	}
	s := &RoomStore{
		userID:  userID,
		backlog: noticeBacklog,
		log:     log,
		ops:     make(chan func(*storeState)),
		done:    make(chan struct{}),
		subs:    make(map[int]chan domain.Change),
	}
	go s.run()
	return s
}

func (s *RoomStore) run() {
	st := &storeState{messages: make(map[string][]domain.Message)}
	for {
		select {
		case op := <-s.ops:
			op(st)
		case <-s.done:
			return
		}
	}
}

// do runs fn on the owning goroutine and waits for it. It reports false once the store is closed.
func (s *RoomStore) do(fn func(*storeState)) bool {
	finished := make(chan struct{})
	select {
	case s.ops <- func(st *storeState) {
		defer close(finished)
		fn(st)
	}:
	case <-s.done:
		return false
	}
	<-finished
	return true
}

// Close stops the owning goroutine and closes every subscription.
func (s *RoomStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.subsMu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.subsMu.Unlock()
	})
}

// Subscribe returns a channel of changes and a func to cancel it.
// Slow subscribers miss changes rather than block the store.
func (s *RoomStore) Subscribe() (<-chan domain.Change, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan domain.Change, subscriberBuffer)
	select {
	case <-s.done:
		close(ch)
		return ch, func() {}
	default:
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

func (s *RoomStore) publish(change domain.Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			s.log.Warn("Dropping store change for slow subscriber", "user_id", s.userID, "kind", change.Kind)
		}
	}
}

// refresh recomputes read state and the last-message summary of room i.
func (s *RoomStore) refresh(st *storeState, i int) {
	room := st.rooms[i]
	room, msgs := ApplyReadState(room, st.messages[room.ID], s.userID, room.ID == st.activeRoomID)
	st.messages[room.ID] = msgs
	st.rooms[i] = Summarize(room, msgs)
}

// ReplaceRooms installs a freshly resolved room list with its histories.
//
// A provisional room whose mentorship now resolved is replaced by the resolved
// room: its pending messages are carried over and the active room id follows
// it. A provisional active room that did not resolve is kept. It returns the
// active room id afterwards.
func (s *RoomStore) ReplaceRooms(rooms []domain.Room, histories map[string][]domain.Message) string {
	var active string
	s.do(func(st *storeState) {
		byMentorship := make(map[string]string, len(rooms))
		next := make(map[string]bool, len(rooms))
		for _, r := range rooms {
			next[r.ID] = true
			if id, ok := byMentorship[r.MentorshipID]; !ok || domain.IsProvisionalRoomID(id) {
				byMentorship[r.MentorshipID] = r.ID
			}
		}

		messages := make(map[string][]domain.Message, len(rooms))
		for _, r := range rooms {
			messages[r.ID] = cloneMessages(histories[r.ID])
		}

		newRooms := cloneRooms(rooms)
		for _, old := range st.rooms {
			pending := pendingMessages(st.messages[old.ID])

			target := old.ID
			if !next[old.ID] && old.IsProvisional() {
				if id, ok := byMentorship[old.MentorshipID]; ok {
					target = id
				}
			}

			switch {
			case next[target]:
				messages[target] = mergePending(messages[target], retarget(pending, target))
			case old.ID == st.activeRoomID:
				newRooms = append(newRooms, old)
				messages[old.ID] = st.messages[old.ID]
			default:
				continue
			}

			if old.ID == st.activeRoomID && target != old.ID {
				s.log.Info("Active room upgraded", "user_id", s.userID, "from", old.ID, "to", target)
				st.activeRoomID = target
			}
		}

		st.rooms = newRooms
		st.messages = messages
		if st.activeRoomID != "" && st.indexOf(st.activeRoomID) < 0 {
			st.activeRoomID = ""
		}
		for i := range st.rooms {
			s.refresh(st, i)
		}
		active = st.activeRoomID

		s.publish(domain.Change{Kind: domain.ChangeRooms})
	})
	return active
}

// UpsertRoom adds the room, or replaces its metadata while keeping its messages.
func (s *RoomStore) UpsertRoom(room domain.Room) {
	s.do(func(st *storeState) {
		i := st.indexOf(room.ID)
		if i < 0 {
			st.rooms = append(st.rooms, room)
			i = len(st.rooms) - 1
		} else {
			st.rooms[i] = room
		}
		s.refresh(st, i)
		s.publish(domain.Change{Kind: domain.ChangeRooms, RoomID: room.ID})
	})
}

// SetHistory replaces a room's sequence with history, keeping the pending
// local messages the history does not confirm after it.
func (s *RoomStore) SetHistory(roomID string, history []domain.Message) error {
	err := apperrors.ErrRoomNotFound
	s.do(func(st *storeState) {
		i := st.indexOf(roomID)
		if i < 0 {
			return
		}
		err = nil
		pending := pendingMessages(st.messages[roomID])
		st.messages[roomID] = mergePending(cloneMessages(history), retarget(pending, roomID))
		s.refresh(st, i)
		s.publish(domain.Change{Kind: domain.ChangeMessages, RoomID: roomID})
	})
	return err
}

// AppendMessage appends msg to the end of the room's sequence.
func (s *RoomStore) AppendMessage(roomID string, msg domain.Message) error {
	err := apperrors.ErrRoomNotFound
	s.do(func(st *storeState) {
		i := st.indexOf(roomID)
		if i < 0 {
			return
		}
		err = nil
		msg.RoomID = roomID
		st.messages[roomID] = append(st.messages[roomID], msg)
		s.refresh(st, i)
		s.publish(domain.Change{Kind: domain.ChangeMessages, RoomID: roomID})
	})
	return err
}

// ApplyIncoming reconciles a server message into its room.
func (s *RoomStore) ApplyIncoming(roomID string, msg domain.Message) (ReconcileResult, error) {
	var result ReconcileResult
	err := apperrors.ErrRoomNotFound
	s.do(func(st *storeState) {
		i := st.indexOf(roomID)
		if i < 0 {
			return
		}
		err = nil
		result = Reconcile(st.messages[roomID], st.rooms[i], msg, s.userID, roomID == st.activeRoomID)
		st.rooms[i] = result.Room
		st.messages[roomID] = result.Messages
		result.Room = cloneRoom(result.Room)
		result.Messages = cloneMessages(result.Messages)
		s.publish(domain.Change{Kind: domain.ChangeMessages, RoomID: roomID})
	})
	if err != nil {
		s.log.Warn("Dropping message for unknown room", "user_id", s.userID, "room_id", roomID)
	}
	return result, err
}

// SetActiveRoom makes roomID active and marks all its messages read.
// An empty id clears the active room.
func (s *RoomStore) SetActiveRoom(roomID string) error {
	var err error
	s.do(func(st *storeState) {
		if roomID == "" {
			st.activeRoomID = ""
			s.publish(domain.Change{Kind: domain.ChangeActiveRoom})
			return
		}
		i := st.indexOf(roomID)
		if i < 0 {
			err = apperrors.ErrRoomNotFound
			return
		}
		st.activeRoomID = roomID
		s.refresh(st, i)
		s.publish(domain.Change{Kind: domain.ChangeActiveRoom, RoomID: roomID})
	})
	return err
}

// Notify records a user-visible notice, keeping only the most recent ones.
func (s *RoomStore) Notify(notice domain.Notice) {
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	s.do(func(st *storeState) {
		st.notices = append(st.notices, notice)
		if over := len(st.notices) - s.backlog; over > 0 {
			st.notices = append([]domain.Notice(nil), st.notices[over:]...)
		}
		n := notice
		s.publish(domain.Change{Kind: domain.ChangeNotice, RoomID: notice.RoomID, Notice: &n})
	})
}

// Reset discards every room, message and notice.
func (s *RoomStore) Reset() {
	s.do(func(st *storeState) {
		st.rooms = nil
		st.messages = make(map[string][]domain.Message)
		st.activeRoomID = ""
		st.notices = nil
		s.publish(domain.Change{Kind: domain.ChangeReset})
	})
}

func (s *RoomStore) Rooms() []domain.Room {
	rooms := []domain.Room{}
	s.do(func(st *storeState) {
		rooms = cloneRooms(st.rooms)
	})
	return rooms
}

func (s *RoomStore) Room(roomID string) (domain.Room, bool) {
	var (
		room  domain.Room
		found bool
	)
	s.do(func(st *storeState) {
		if i := st.indexOf(roomID); i >= 0 {
			room, found = cloneRoom(st.rooms[i]), true
		}
	})
	return room, found
}

// RoomByMentorship prefers a room with a real conversation id over a provisional one.
func (s *RoomStore) RoomByMentorship(mentorshipID string) (domain.Room, bool) {
	var (
		room  domain.Room
		found bool
	)
	s.do(func(st *storeState) {
		for _, r := range st.rooms {
			if r.MentorshipID != mentorshipID {
				continue
			}
			if !found || (room.IsProvisional() && !r.IsProvisional()) {
				room, found = cloneRoom(r), true
			}
		}
	})
	return room, found
}

func (s *RoomStore) Messages(roomID string) ([]domain.Message, error) {
	msgs := []domain.Message{}
	err := apperrors.ErrRoomNotFound
	s.do(func(st *storeState) {
		if st.indexOf(roomID) < 0 {
			return
		}
		err = nil
		msgs = cloneMessages(st.messages[roomID])
	})
	return msgs, err
}

func (s *RoomStore) ActiveRoomID() string {
	var id string
	s.do(func(st *storeState) {
		id = st.activeRoomID
	})
	return id
}

func (s *RoomStore) Notices() []domain.Notice {
	notices := []domain.Notice{}
	s.do(func(st *storeState) {
		notices = append(notices, st.notices...)
	})
	return notices
}

func (s *RoomStore) Snapshot() Snapshot {
	snap := Snapshot{
		Rooms:    []domain.Room{},
		Messages: map[string][]domain.Message{},
		Notices:  []domain.Notice{},
	}
	s.do(func(st *storeState) {
		snap.Rooms = cloneRooms(st.rooms)
		snap.ActiveRoomID = st.activeRoomID
		for id, msgs := range st.messages {
			snap.Messages[id] = cloneMessages(msgs)
		}
		snap.Notices = append(snap.Notices, st.notices...)
	})
	return snap
}

func cloneRoom(r domain.Room) domain.Room {
	if r.LastMessageTime != nil {
		ts := *r.LastMessageTime
		r.LastMessageTime = &ts
	}
	return r
}

func cloneRooms(rooms []domain.Room) []domain.Room {
	out := make([]domain.Room, len(rooms))
	for i, r := range rooms {
		out[i] = cloneRoom(r)
	}
	return out
}

func cloneMessages(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

func pendingMessages(msgs []domain.Message) []domain.Message {
	var out []domain.Message
	for _, m := range msgs {
		if m.IsProvisional() {
			out = append(out, m)
		}
	}
	return out
}

func retarget(msgs []domain.Message, roomID string) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		m.RoomID = roomID
		out[i] = m
	}
	return out
}

// mergePending appends the pending messages that history does not already
// confirm. A pending message is confirmed by the first unclaimed history entry
// with the same sender and content, the same pairing Reconcile uses for live
// echoes. Each history entry confirms at most one pending message.
func mergePending(history, pending []domain.Message) []domain.Message {
	if len(pending) == 0 {
		return history
	}
	claimed := make([]bool, len(history))
	seen := make(map[string]bool, len(history))
	for _, m := range history {
		seen[m.ID] = true
	}

	for _, p := range pending {
		if seen[p.ID] {
			continue
		}
		confirmed := false
		for i, h := range history {
			if claimed[i] || h.IsProvisional() || h.SenderID != p.SenderID || h.Content != p.Content {
				continue
			}
			claimed[i] = true
			confirmed = true
			break
		}
		if !confirmed {
			history = append(history, p)
			claimed = append(claimed, true)
			seen[p.ID] = true
		}
	}
	return history
}
