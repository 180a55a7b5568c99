package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"user123@example.co.uk", true},
		{"a@b.co", true},
		{"user@localhost", false}, // invites need a routable domain
		{"a@b@example.com", false},

		{"", false},
		{"   ", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},

		{".user@example.com", false},
		{"user.@example.com", false},
		{"user..name@example.com", false},
		{"user@.example.com", false},
		{"user@example..com", false},

		{"User Name <user@example.com>", false},

		{"user @example.com", false},
		{"user@ example.com", false},
		{"user@exam ple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"  507f1f77bcf86cd799439011  ", true},
		{"", false},
		{"invalid-id", false},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd79943901g", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsValidObjectID(tt.id); got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://example.com", true},
		{"https://example.com/path?query=1", true},
		{"http://localhost:8080", true},
		{"  https://example.com  ", true},
		{"", false},
		{"not-a-url", false},
		{"ftp://example.com", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsValidHTTPURL(tt.url); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestResultChecks(t *testing.T) {
	tests := []struct {
		name      string
		build     func(r *Result)
		wantFirst string
	}{
		{
			name: "valid",
			build: func(r *Result) {
				r.Required("name", "Camp name", "Dust Devils").MaxLen("name", "Camp name", "Dust Devils", 100)
			},
			wantFirst: "",
		},
		{
			name:      "missing",
			build:     func(r *Result) { r.Required("name", "Camp name", "  ") },
			wantFirst: "Camp name is required.",
		},
		{
			name:      "too long",
			build:     func(r *Result) { r.MaxLen("playaName", "Playa name", "abcdefghijk", 10) },
			wantFirst: "Playa name must be at most 10 characters.",
		},
		{
			name:      "too short",
			build:     func(r *Result) { r.MinLen("motivation", "Motivation", "hi", 10) },
			wantFirst: "Motivation must be at least 10 characters.",
		},
		{
			name:      "bad email",
			build:     func(r *Result) { r.Email("email", "not-an-email") },
			wantFirst: "A valid email address is required.",
		},
		{
			name:      "out of range",
			build:     func(r *Result) { r.Range("yearsBurned", "Years burned", 51, 0, 50) },
			wantFirst: "Years burned must be between 0 and 50.",
		},
		{
			name:      "not one of",
			build:     func(r *Result) { r.OneOf("priority", "Priority", "urgent", "low", "medium", "high") },
			wantFirst: "Priority must be one of: low, medium, high.",
		},
		{
			name:      "empty url allowed",
			build:     func(r *Result) { r.URL("website", "Website", "") },
			wantFirst: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Result
			tt.build(&r)
			if r.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", r.First(), tt.wantFirst)
			}
			if r.HasErrors() != (tt.wantFirst != "") {
				t.Errorf("HasErrors() = %v", r.HasErrors())
			}
		})
	}
}

func TestResult_All(t *testing.T) {
	r := &Result{}
	if r.All() != "" {
		t.Errorf("All() = %q, want empty", r.All())
	}
	r.Add("a", "Error 1")
	r.Add("b", "Error 2")
	if want := "Error 1; Error 2"; r.All() != want {
		t.Errorf("All() = %q, want %q", r.All(), want)
	}
}

func TestValidate(t *testing.T) {
	type dues struct {
		Currency string `json:"currency" validate:"omitempty,oneof=USD CAD" label:"Currency"`
	}
	type input struct {
		Name       string `json:"name" validate:"required,max=10" label:"Camp name"`
		Email      string `json:"email" validate:"required,email" label:"Email"`
		Motivation string `json:"motivation" validate:"min=10,max=1000" label:"Motivation"`
		Years      int    `json:"yearsBurned" validate:"between=0|50" label:"Years burned"`
		CampID     string `json:"campId" validate:"omitempty,objectid" label:"Camp ID"`
		Date       string `json:"date" validate:"omitempty,isodate" label:"Date"`
		Start      string `json:"startTime" validate:"omitempty,clock" label:"Start time"`
		Dues       dues   `json:"dues"`
	}
	ok := input{Name: "Dusty", Email: "dusty@example.com", Motivation: "I love shade and water", Years: 3}

	tests := []struct {
		name      string
		mutate    func(in *input)
		wantField string
		wantFirst string
	}{
		{"valid", func(in *input) {}, "", ""},
		{"missing name", func(in *input) { in.Name = " " }, "name", "Camp name is required."},
		{"name too long", func(in *input) { in.Name = "Dusty Devils Camp" }, "name", "Camp name must be at most 10 characters."},
		{"bad email", func(in *input) { in.Email = "nope" }, "email", "A valid email address is required."},
		{"motivation too short", func(in *input) { in.Motivation = "hi" }, "motivation", "Motivation must be at least 10 characters."},
		{"years out of range", func(in *input) { in.Years = 51 }, "yearsBurned", "Years burned must be between 0 and 50."},
		{"bad camp id", func(in *input) { in.CampID = "abc" }, "campId", "Camp ID is not a valid id."},
		{"bad date", func(in *input) { in.Date = "08/30/2026" }, "date", "Date must be a date like 2026-08-30."},
		{"bad clock", func(in *input) { in.Start = "25:00" }, "startTime", "Start time must be a time like 18:30."},
		{"good date and clock", func(in *input) { in.Date, in.Start = "2026-08-30", "18:30" }, "", ""},
		{"nested label", func(in *input) { in.Dues.Currency = "EUR" }, "dues.currency", "Currency must be one of: USD, CAD."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			tt.mutate(&in)
			r := Validate(in)
			if r.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", r.First(), tt.wantFirst)
			}
			if tt.wantField != "" && r.Errors[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", r.Errors[0].Field, tt.wantField)
			}
		})
	}
}

func TestOneOf_ValuesWithSpaces(t *testing.T) {
	var r Result
	r.OneOf("category", "Category", "Account Management", "General", "Account Management")
	if r.HasErrors() {
		t.Fatalf("unexpected error: %s", r.First())
	}
	r.OneOf("category", "Category", "", "General", "Account Management")
	if want := "Category must be one of: General, Account Management."; r.First() != want {
		t.Errorf("First() = %q, want %q", r.First(), want)
	}
}

func TestResult_Struct(t *testing.T) {
	type social struct {
		Instagram string `json:"instagram" validate:"max=5" label:"Instagram"`
	}
	var r Result
	r.Struct("socialMedia", social{Instagram: "@short"})
	if r.First() != "Instagram must be at most 5 characters." {
		t.Errorf("First() = %q", r.First())
	}
	if r.Errors[0].Field != "socialMedia.instagram" {
		t.Errorf("Field = %q", r.Errors[0].Field)
	}

	var ok Result
	ok.Struct("socialMedia", social{Instagram: "@ok"})
	if ok.HasErrors() {
		t.Errorf("unexpected error: %s", ok.First())
	}
}
