package agent

import "testing"

func testRoster() []Agent {
	return []Agent{
		{ID: "a", Name: "Agent A", Specialty: "research"},
		{ID: "b", Name: "Agent B", Specialty: "files"},
		{ID: "c", Name: "Agent C", Specialty: "shell"},
	}
}

func TestNewPool_Validation(t *testing.T) {
	if _, err := NewPool(nil); err == nil {
		t.Fatal("expected error for empty roster")
	}
	if _, err := NewPool([]Agent{{Name: "no id"}}); err == nil {
		t.Fatal("expected error for missing ID")
	}
	if _, err := NewPool([]Agent{{ID: "x"}, {ID: "x"}}); err == nil {
		t.Fatal("expected error for duplicate ID")
	}
}

func TestPool_NextRoundRobin(t *testing.T) {
	pool, err := NewPool(testRoster())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	want := []string{"a", "b", "c", "a", "b"}
	for i, w := range want {
		if got := pool.Next(); got.ID != w {
			t.Errorf("Next() #%d = %q, want %q", i, got.ID, w)
		}
	}
}

func TestPool_AcquireRelease(t *testing.T) {
	pool, err := NewPool(testRoster())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	// Two tasks on the same agent: stays working until both release.
	if err := pool.Acquire("a"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := pool.Acquire("a"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a, _ := pool.Get("a"); a.Status != StatusWorking {
		t.Errorf("Status = %q, want working", a.Status)
	}

	pool.Release("a")
	if a, _ := pool.Get("a"); a.Status != StatusWorking {
		t.Errorf("Status after first release = %q, want working", a.Status)
	}
	pool.Release("a")
	if a, _ := pool.Get("a"); a.Status != StatusIdle {
		t.Errorf("Status after last release = %q, want idle", a.Status)
	}

	if err := pool.Acquire("nope"); err == nil {
		t.Fatal("expected error acquiring unknown agent")
	}
}

func TestPool_ListOrder(t *testing.T) {
	pool, err := NewPool(testRoster())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	list := pool.List()
	if len(list) != 3 {
		t.Fatalf("List length = %d, want 3", len(list))
	}
	for i, id := range []string{"a", "b", "c"} {
		if list[i].ID != id {
			t.Errorf("List[%d].ID = %q, want %q", i, list[i].ID, id)
		}
	}
}
