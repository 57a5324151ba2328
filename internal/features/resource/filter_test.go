package resource

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildFilter(t *testing.T) {
	ownerID := primitive.NewObjectID()

	tests := []struct {
		name   string
		filter Filter
		want   bson.M
	}{
		{
			name:   "empty filter matches everything",
			filter: Filter{},
			want:   bson.M{},
		},
		{
			name:   "subject only",
			filter: Filter{Subject: "Mathematics"},
			want:   bson.M{"subject": "Mathematics"},
		},
		{
			name:   "facets combine",
			filter: Filter{Subject: "Physics", Category: "Notes", Year: "2024", Semester: "1", ExamType: "Final"},
			want: bson.M{
				"subject":   "Physics",
				"category":  "Notes",
				"year":      "2024",
				"semester":  "1",
				"exam_type": "Final",
			},
		},
		{
			name:   "owner id is parsed",
			filter: Filter{OwnerID: ownerID.Hex()},
			want:   bson.M{"owner_id": ownerID},
		},
		{
			name:   "invalid owner id imposes no constraint",
			filter: Filter{OwnerID: "not-an-oid"},
			want:   bson.M{},
		},
		{
			name:   "status",
			filter: Filter{Status: StatusApproved},
			want:   bson.M{"status": StatusApproved},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildFilter(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("buildFilter() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if gotVal, ok := got[k]; !ok || gotVal != v {
					t.Errorf("buildFilter()[%q] = %v, want %v", k, gotVal, v)
				}
			}
		})
	}
}

func TestBuildFilterTextSearch(t *testing.T) {
	got := buildFilter(Filter{Search: "calculus"})

	or, ok := got["$or"].([]bson.M)
	if !ok {
		t.Fatalf("buildFilter() $or = %T, want []bson.M", got["$or"])
	}
	if len(or) != 3 {
		t.Fatalf("$or has %d branches, want 3 (title, description, tags)", len(or))
	}

	for _, branch := range or {
		for field, cond := range branch {
			m, ok := cond.(bson.M)
			if !ok {
				t.Fatalf("branch %s = %T, want bson.M", field, cond)
			}
			regex, ok := m["$regex"].(primitive.Regex)
			if !ok {
				t.Fatalf("branch %s has no regex", field)
			}
			if regex.Options != "i" {
				t.Errorf("branch %s regex options = %q, want i", field, regex.Options)
			}
			if regex.Pattern != "calculus" {
				t.Errorf("branch %s pattern = %q", field, regex.Pattern)
			}
		}
	}
}

func TestRegexQuoteMeta(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"c++ guide", `c\+\+ guide`},
		{"what?", `what\?`},
		{"a.b", `a\.b`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := regexQuoteMeta(tt.in); got != tt.want {
			t.Errorf("regexQuoteMeta(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
