package categories

import "testing"

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"DINING", Dining},
		{"dining", Dining},
		{"  Groceries  ", Groceries},
		{"SAVINGS", Other}, // pseudo-category is not a real label
		{"FOOD", Other},
		{"", Other},
	}
	for _, tt := range tests {
		if got := Coerce(tt.in); got != tt.want {
			t.Errorf("Coerce(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAllExcludesSavings(t *testing.T) {
	for _, c := range All() {
		if c == Savings {
			t.Fatal("All() must not include SAVINGS")
		}
	}
	if len(All()) != 10 {
		t.Errorf("len(All()) = %d, want 10", len(All()))
	}
}

func TestIsValid(t *testing.T) {
	for _, c := range All() {
		if !IsValid(c) {
			t.Errorf("IsValid(%v) = false, want true", c)
		}
	}
	if IsValid(Savings) {
		t.Error("IsValid(SAVINGS) = true, want false")
	}
	if IsValid(Category("FOOD")) {
		t.Error("IsValid(FOOD) = true, want false")
	}
}

func TestEssentialDiscretionaryPartition(t *testing.T) {
	for _, c := range All() {
		if c == Other {
			if IsEssential(c) || IsDiscretionary(c) {
				t.Errorf("%v should be neither essential nor discretionary", c)
			}
			continue
		}
		if IsEssential(c) == IsDiscretionary(c) {
			t.Errorf("%v must be exactly one of essential or discretionary", c)
		}
	}
}

func TestDefaultPriorsCoverAllCategories(t *testing.T) {
	priors := DefaultPriors()
	for _, c := range All() {
		p, ok := priors[c]
		if !ok {
			t.Errorf("missing prior for %v", c)
			continue
		}
		if p <= 0 || p > 1 {
			t.Errorf("prior for %v = %v, want in (0, 1]", c, p)
		}
	}
}
