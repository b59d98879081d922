package convo

import "testing"

func TestFilterIncludeExclude(t *testing.T) {
	f := Filter{Include: []string{"*.jsonl"}, Exclude: []string{"*draft*"}}

	if !f.ShouldInclude("/sessions/abc.jsonl") {
		t.Error("expected abc.jsonl to be included")
	}
	if f.ShouldInclude("/sessions/draft-123.jsonl") {
		t.Error("expected draft file to be excluded")
	}
	if f.ShouldInclude("/sessions/abc.json") {
		t.Error("expected non-matching extension to be excluded")
	}
}

func TestFilterEmptyIncludeMeansAll(t *testing.T) {
	f := Filter{}
	if !f.ShouldInclude("/anything/at/all.jsonl") {
		t.Error("empty Include should admit everything")
	}
}

func TestFilterExcludeAttachments(t *testing.T) {
	f := Filter{ExcludeAttachments: true}
	if f.ShouldInclude("/sessions/attachment-1.jsonl") {
		t.Error("expected attachment path to be excluded")
	}
	if !f.ShouldInclude("/sessions/normal.jsonl") {
		t.Error("expected normal path to be included")
	}
}
