// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package objmap

import (
	"testing"

	"github.com/wl-core/wlcore/proto"
)

func TestNewPreInsertsDisplay(t *testing.T) {
	m := New[string]("display-meta")
	rec, ok := m.Find(1)
	if !ok {
		t.Fatalf("expected id 1 to be populated")
	}
	if rec.Interface != proto.WlDisplay {
		t.Errorf("expected wl_display interface, got %v", rec.Interface)
	}
	if rec.Meta != "display-meta" {
		t.Errorf("got meta %q", rec.Meta)
	}
}

func TestClientInsertNewReusesFreeSlot(t *testing.T) {
	m := New[int](0)
	id2 := m.ClientInsertNew(Record[int]{Interface: proto.WlRegistry, Meta: 2})
	id3 := m.ClientInsertNew(Record[int]{Interface: proto.WlRegistry, Meta: 3})
	if id2 == 0 || id3 == 0 || id2 == id3 {
		t.Fatalf("unexpected ids: %d %d", id2, id3)
	}

	if err := m.Remove(id2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	id4 := m.ClientInsertNew(Record[int]{Interface: proto.WlRegistry, Meta: 4})
	if id4 != id2 {
		t.Fatalf("expected reused slot %d, got %d", id2, id4)
	}
}

func TestServerInsertNewStartsAtLimit(t *testing.T) {
	m := New[int](0)
	id := m.ServerInsertNew(Record[int]{Interface: proto.WlCallback})
	if id != ServerIDLimit {
		t.Fatalf("got %d, want %d", id, ServerIDLimit)
	}
}

func TestInsertAtConflict(t *testing.T) {
	m := New[int](0)
	if _, err := m.InsertAt(1, Record[int]{Interface: proto.WlDisplay}); err != ErrIDInUse {
		t.Fatalf("got %v, want ErrIDInUse", err)
	}
}

func TestInsertAtGrowsSparsely(t *testing.T) {
	m := New[int](0)
	if _, err := m.InsertAt(10, Record[int]{Interface: proto.WlRegistry}); err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	if _, ok := m.Find(5); ok {
		t.Fatalf("expected id 5 to be empty")
	}
	if _, ok := m.Find(10); !ok {
		t.Fatalf("expected id 10 to be populated")
	}
}

func TestRemoveUnknownID(t *testing.T) {
	m := New[int](0)
	if err := m.Remove(999); err != ErrInvalidID {
		t.Fatalf("got %v, want ErrInvalidID", err)
	}
}

func TestSerialBumpsOnReuse(t *testing.T) {
	m := New[int](0)
	id := m.ClientInsertNew(Record[int]{Interface: proto.WlRegistry})
	first, _ := m.Find(id)
	_ = m.Remove(id)
	m.ClientInsertNew(Record[int]{Interface: proto.WlRegistry})
	second, _ := m.Find(id)
	if second.Serial <= first.Serial {
		t.Fatalf("expected serial to increase on reuse: first=%d second=%d", first.Serial, second.Serial)
	}
}

func TestWithAllVisitsBothHalves(t *testing.T) {
	m := New[int](0)
	m.ClientInsertNew(Record[int]{Interface: proto.WlRegistry})
	m.ServerInsertNew(Record[int]{Interface: proto.WlCallback})

	seenServer, seenClient := false, false
	m.WithAll(func(id uint32, rec *Record[int]) {
		if id >= ServerIDLimit {
			seenServer = true
		} else {
			seenClient = true
		}
	})
	if !seenServer || !seenClient {
		t.Fatalf("expected to visit both halves: server=%v client=%v", seenServer, seenClient)
	}
}
