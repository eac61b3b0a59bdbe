package card

import (
	"testing"
)

func TestDeriveID_Shape(t *testing.T) {
	id := DeriveID("Ada", "Lovelace", "ada@example.com", "https://github.com/adalovelace.png")
	if len(id) != IDLength {
		t.Fatalf("len(id) = %d, want %d", len(id), IDLength)
	}
	if !IsWellFormedID(id) {
		t.Errorf("IsWellFormedID(%q) = false, want true", id)
	}
}

func TestDataID_Idempotent(t *testing.T) {
	d := Data{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		GitHub:    "adalovelace",
		Company:   "Analytical Engines",
		AvatarURL: "https://github.com/adalovelace.png",
	}
	if d.ID() != d.ID() {
		t.Fatal("ID() is not deterministic")
	}

	// Only name, email and avatar feed the identifier.
	sameCard := d
	sameCard.Company = "Difference Engines"
	if sameCard.ID() != d.ID() {
		t.Error("changing company changed the identifier")
	}
}

func TestDataID_ChangesWithEachField(t *testing.T) {
	base := Data{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", AvatarURL: "https://a/x.png"}

	tests := []struct {
		name   string
		mutate func(*Data)
	}{
		{"first name", func(d *Data) { d.FirstName = "Augusta" }},
		{"last name", func(d *Data) { d.LastName = "King" }},
		{"email", func(d *Data) { d.Email = "augusta@example.com" }},
		{"avatar", func(d *Data) { d.AvatarURL = "https://a/y.png" }},
		{"shifted boundary", func(d *Data) { d.FirstName = "AdaL"; d.LastName = "ovelace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base
			tt.mutate(&changed)
			if changed.ID() == base.ID() {
				t.Errorf("changing %s kept identifier %s", tt.name, base.ID())
			}
		})
	}
}

func TestIsWellFormedID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"0123456789abcdef0123456789abcdef", true},
		{"0123456789ABCDEF0123456789ABCDEF", false},
		{"0123456789abcdef0123456789abcde", false},
		{"0123456789abcdef0123456789abcdef0", false},
		{"0123456789abcdef0123456789abcdeg", false},
		{"../../../../etc/passwd", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsWellFormedID(tt.id); got != tt.want {
			t.Errorf("IsWellFormedID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestFormNormalize(t *testing.T) {
	f := Form{FirstName: "  Ada ", Email: "ada@example.com\n"}.Normalize()
	if f.FirstName != "Ada" || f.Email != "ada@example.com" {
		t.Errorf("Normalize() = %+v", f)
	}
}
