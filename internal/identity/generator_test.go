package identity

import (
	"context"
	"encoding/json"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zarlcorp/zident/internal/inbox"
	"github.com/zarlcorp/zident/internal/tables"
)

var fixedNow = time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)

func testGenerator(opts ...Option) *Generator {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(nil, opts...)
}

type stubProvisioner struct {
	mb    inbox.Mailbox
	ok    bool
	calls int
}

func (s *stubProvisioner) Provision(context.Context) (inbox.Mailbox, bool) {
	s.calls++
	return s.mb, s.ok
}

func TestGenerateComplete(t *testing.T) {
	g := testGenerator()
	id := g.Generate(context.Background(), DefaultOptions())

	fields := map[string]string{
		"FirstName":       id.FirstName,
		"LastName":        id.LastName,
		"Email":           id.Email,
		"Phone":           id.Phone,
		"Address.Street":  id.Address.Street,
		"Address.City":    id.Address.City,
		"Address.State":   id.Address.State,
		"Address.Country": id.Address.Country,
		"Username":        id.Username,
		"Password":        id.Password,
	}
	for name, val := range fields {
		if val == "" {
			t.Errorf("%s is empty", name)
		}
	}

	if id.FullName() != id.FirstName+" "+id.LastName {
		t.Errorf("full name: got %q", id.FullName())
	}
	if !id.Created.Equal(fixedNow) {
		t.Errorf("created: got %v", id.Created)
	}
	if id.EmailToken != "" {
		t.Errorf("unexpected token %q", id.EmailToken)
	}
}

func TestNameGenderBuckets(t *testing.T) {
	g := testGenerator()
	d := tables.Defaults()

	for _, gender := range tables.Genders {
		t.Run(gender, func(t *testing.T) {
			for range 50 {
				first, last := g.Name(gender, "US")
				if !slices.Contains(d.FirstNames[gender], first) {
					t.Fatalf("first name %q not in %s bucket", first, gender)
				}
				if !slices.Contains(d.LastNames["US"], last) {
					t.Fatalf("last name %q not in US table", last)
				}
			}
		})
	}
}

func TestNameAnyAndUnknown(t *testing.T) {
	g := testGenerator()
	d := tables.Defaults()

	var all []string
	for _, gender := range tables.Genders {
		all = append(all, d.FirstNames[gender]...)
	}

	for range 50 {
		if first, _ := g.Name("any", "US"); !slices.Contains(all, first) {
			t.Fatalf("any: %q not in any bucket", first)
		}
		if first, _ := g.Name("", "US"); !slices.Contains(all, first) {
			t.Fatalf("empty: %q not in any bucket", first)
		}
		if first, _ := g.Name("robot", "US"); !slices.Contains(d.FirstNames["neutral"], first) {
			t.Fatalf("unknown: %q not in neutral bucket", first)
		}
		if _, last := g.Name("male", "FR"); !slices.Contains(d.LastNames["US"], last) {
			t.Fatalf("unknown country: %q not in US table", last)
		}
		if _, last := g.Name("male", "in"); !slices.Contains(d.LastNames["in"], last) {
			t.Fatalf("in: %q not in in table", last)
		}
	}
}

func TestEmail(t *testing.T) {
	g := testGenerator()
	d := tables.Defaults()
	re := regexp.MustCompile(`^ada\.lovelace\d{1,3}@(.+)$`)

	for range 50 {
		email := g.Email("Ada", "Lovelace")
		m := re.FindStringSubmatch(email)
		if m == nil {
			t.Fatalf("email %q does not match firstname.lastnameN@domain", email)
		}
		if !slices.Contains(d.Domains, m[1]) {
			t.Fatalf("domain %q not in table", m[1])
		}
	}
}

func TestPhoneFormats(t *testing.T) {
	g := testGenerator()

	tests := []struct {
		country string
		pattern string
	}{
		{"US", `^\+1-\d{3}-\d{3}-\d{4}$`},
		{"in", `^\+91-\d{5}-\d{5}$`},
		{"IN", `^\+91-\d{5}-\d{5}$`},
		{"ZZ", `^\+1-\d{3}-\d{3}-\d{4}$`},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			re := regexp.MustCompile(tt.pattern)
			for range 20 {
				if p := g.Phone(tt.country); !re.MatchString(p) {
					t.Fatalf("phone %q does not match %s", p, tt.pattern)
				}
			}
		})
	}
}

func TestAddressWithinTables(t *testing.T) {
	g := testGenerator()
	d := tables.Defaults()
	streetRe := regexp.MustCompile(`^\d{1,3} (.+)$`)

	tests := []struct {
		country string
		want    string
	}{
		{"US", "US"},
		{"in", "in"},
		{"ZZ", "US"},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			for range 50 {
				a := g.Address(tt.country)
				if a.Country != tt.want {
					t.Fatalf("country: got %q, want %q", a.Country, tt.want)
				}
				if !slices.Contains(d.States[tt.want], a.State) {
					t.Fatalf("state %q not in %s", a.State, tt.want)
				}
				if !slices.Contains(d.Cities[a.State], a.City) {
					t.Fatalf("city %q not in %s", a.City, a.State)
				}
				m := streetRe.FindStringSubmatch(a.Street)
				if m == nil || !slices.Contains(d.Streets[tt.want], m[1]) {
					t.Fatalf("street %q not from %s table", a.Street, tt.want)
				}
			}
		})
	}
}

func TestAddressStateWithoutCities(t *testing.T) {
	tb := tables.Defaults()
	tb.States["XX"] = []string{"Nowhere"}
	tb.Streets["XX"] = []string{"Main St"}
	g := New(tb)

	a := g.Address("XX")
	if a.State != "Nowhere" {
		t.Fatalf("state: got %q", a.State)
	}
	if !slices.Contains(tb.Cities[tables.DefaultState], a.City) {
		t.Errorf("city %q should come from the default state", a.City)
	}
}

func TestUsername(t *testing.T) {
	g := testGenerator()
	re := regexp.MustCompile(`^adalovelace[0-9a-f]{4}$`)

	for range 20 {
		if u := g.Username("Ada", "Lovelace"); !re.MatchString(u) {
			t.Fatalf("username %q", u)
		}
	}
}

func TestBirthdateRange(t *testing.T) {
	g := testGenerator()
	year := fixedNow.Year()

	tests := []struct {
		name   string
		minAge int
		maxAge int
	}{
		{"default", 18, 65},
		{"fixed age", 30, 30},
		{"newborn", 0, 0},
		{"oldest", 120, 120},
		{"full span", 0, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 200 {
				d := g.Birthdate(tt.minAge, tt.maxAge)
				if d.Year() < year-tt.maxAge || d.Year() > year-tt.minAge {
					t.Fatalf("year %d outside [%d, %d]", d.Year(), year-tt.maxAge, year-tt.minAge)
				}
				if d.Day() < 1 || d.Day() > 28 {
					t.Fatalf("day %d outside 1..28", d.Day())
				}
			}
		})
	}
}

func TestBirthdateClamps(t *testing.T) {
	g := testGenerator()
	year := fixedNow.Year()

	for range 50 {
		d := g.Birthdate(-5, 500)
		if d.Year() < year-120 || d.Year() > year {
			t.Fatalf("year %d outside clamped range", d.Year())
		}
		d = g.Birthdate(70, 20)
		if d.Year() != year-20 {
			t.Fatalf("min above max: year %d, want %d", d.Year(), year-20)
		}
	}
}

func TestPassword(t *testing.T) {
	g := testGenerator()
	seen := make(map[string]bool)

	for range 20 {
		p := g.Password()
		if len(p) != 12 {
			t.Fatalf("length: got %d", len(p))
		}
		for _, c := range p {
			if !strings.ContainsRune(allPassChars, c) {
				t.Fatalf("unexpected char %q in %q", c, p)
			}
		}
		seen[p] = true
	}
	if len(seen) < 2 {
		t.Error("passwords are not random")
	}
}

func TestEmailModes(t *testing.T) {
	t.Run("manual", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EmailMode = EmailManual
		opts.ManualEmail = "me@mine.test"

		id := testGenerator().Generate(context.Background(), opts)
		if id.Email != "me@mine.test" {
			t.Errorf("email: got %q", id.Email)
		}
	})

	t.Run("provisioned", func(t *testing.T) {
		stub := &stubProvisioner{mb: inbox.Mailbox{Address: "abc@inbox.test", Token: "tok"}, ok: true}
		opts := DefaultOptions()
		opts.EmailMode = EmailProvisioned

		id := testGenerator(WithProvisioner(stub)).Generate(context.Background(), opts)
		if id.Email != "abc@inbox.test" || id.EmailToken != "tok" {
			t.Errorf("got email %q token %q", id.Email, id.EmailToken)
		}
		if stub.calls != 1 {
			t.Errorf("provision calls: %d", stub.calls)
		}
	})

	t.Run("provisioning fails", func(t *testing.T) {
		stub := &stubProvisioner{ok: false}
		opts := DefaultOptions()
		opts.EmailMode = EmailProvisioned

		id := testGenerator(WithProvisioner(stub)).Generate(context.Background(), opts)
		_, domain, ok := strings.Cut(id.Email, "@")
		if !ok || !slices.Contains(tables.Defaults().Domains, domain) {
			t.Errorf("fallback email %q", id.Email)
		}
		if id.EmailToken != "" {
			t.Errorf("unexpected token %q", id.EmailToken)
		}
	})

	t.Run("no provisioner", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EmailMode = EmailProvisioned

		id := testGenerator().Generate(context.Background(), opts)
		if !strings.Contains(id.Email, "@") {
			t.Errorf("fallback email %q", id.Email)
		}
	})
}

func testIdentity() Identity {
	return Identity{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada.lovelace7@example.com",
		Phone:     "+1-555-123-4567",
		Address:   Address{Street: "12 Main St", City: "Fresno", State: "CA", Country: "US"},
		Username:  "adalovelace0f3a",
		Birthdate: time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
		Password:  "p@ss",
		Created:   fixedNow,
	}
}

func TestRecordOrder(t *testing.T) {
	r := testIdentity().Record()
	want := []string{
		"first_name", "last_name", "full_name", "email", "phone", "address",
		"username", "birthdate", "password", "created",
	}
	if !slices.Equal(r.Keys(), want) {
		t.Errorf("keys: got %v", r.Keys())
	}
	if r.String("birthdate") != "1990-03-14" {
		t.Errorf("birthdate: got %q", r.String("birthdate"))
	}
	if r.String("created") != "2026-06-15 10:30:00" {
		t.Errorf("created: got %q", r.String("created"))
	}

	id := testIdentity()
	id.EmailToken = "tok"
	if keys := id.Record().Keys(); keys[len(keys)-1] != "email_token" {
		t.Errorf("email_token should be last: %v", keys)
	}
}

func TestProject(t *testing.T) {
	r := testIdentity().Record()

	got := r.Project([]string{"email", "address_city", "first_name", "email_token", "address_country"})
	want := Record{
		{Key: "email", Value: "ada.lovelace7@example.com"},
		{Key: "address_city", Value: "Fresno"},
		{Key: "first_name", Value: "Ada"},
		{Key: "address_country", Value: "US"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v", got.Keys())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: got %+v, want %+v", i, got[i], want[i])
		}
	}

	dup := r.Project([]string{"email", "email", "address_city", "address_city"})
	if keys := dup.Keys(); !slices.Equal(keys, []string{"email", "address_city"}) {
		t.Errorf("repeated fields: got %v", keys)
	}

	addr, ok := r.Project([]string{"address"}).Get("address")
	if !ok {
		t.Fatal("address missing")
	}
	if nested, ok := addr.(Record); !ok || len(nested) != 4 {
		t.Errorf("nested address: %v", addr)
	}
}

func TestIsValidField(t *testing.T) {
	for _, f := range []string{"first_name", "email_token", "address", "address_state"} {
		if !IsValidField(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	for _, f := range []string{"", "address.city", "ssn", "address_zip"} {
		if IsValidField(f) {
			t.Errorf("%s should be invalid", f)
		}
	}
}

func TestFlatten(t *testing.T) {
	flat := testIdentity().Record().Flatten()
	want := []string{
		"first_name", "last_name", "full_name", "email", "phone",
		"address_street", "address_city", "address_state", "address_country",
		"username", "birthdate", "password", "created",
	}
	if !slices.Equal(flat.Keys(), want) {
		t.Errorf("keys: got %v", flat.Keys())
	}
	if flat.String("address_street") != "12 Main St" {
		t.Errorf("street: got %q", flat.String("address_street"))
	}
}

func TestRecordJSON(t *testing.T) {
	r := Record{
		{Key: "b", Value: "2"},
		{Key: "a", Value: Record{{Key: "z", Value: "x\"y"}, {Key: "y", Value: "w"}}},
	}

	got, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"b":"2","a":{"z":"x\"y","y":"w"}}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestRecordYAML(t *testing.T) {
	r := Record{
		{Key: "b", Value: "2"},
		{Key: "a", Value: Record{{Key: "z", Value: "x"}, {Key: "y", Value: "w"}}},
	}

	got, err := yaml.Marshal([]Record{r})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back []map[string]any
	if err := yaml.Unmarshal(got, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 1 || back[0]["b"] != "2" {
		t.Fatalf("round trip: %v", back)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(got, &doc); err != nil {
		t.Fatalf("unmarshal node: %v", err)
	}
	top := doc.Content[0].Content[0]
	if keys := mappingKeys(top); !slices.Equal(keys, []string{"b", "a"}) {
		t.Errorf("top-level keys %v in:\n%s", keys, got)
	}
	if keys := mappingKeys(top.Content[3]); !slices.Equal(keys, []string{"z", "y"}) {
		t.Errorf("nested keys %v in:\n%s", keys, got)
	}
}

func mappingKeys(n *yaml.Node) []string {
	var keys []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}
