package pathpattern

import "testing"

func TestParseRejectsMissingLeadingSlash(t *testing.T) {
	if _, err := Parse("users/me"); err == nil {
		t.Fatalf("expected error for path without leading slash")
	}
}

func TestParseRejectsEmptyPath(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestParseRejectsUnbalancedBrace(t *testing.T) {
	if _, err := Parse("/users/{id"); err == nil {
		t.Fatalf("expected error for unbalanced brace")
	}
}

func TestParseRejectsEmptyParamName(t *testing.T) {
	if _, err := Parse("/users/{}"); err == nil {
		t.Fatalf("expected error for empty parameter name")
	}
}

func TestParseRejectsNestedBraces(t *testing.T) {
	if _, err := Parse("/users/{{id}}"); err == nil {
		t.Fatalf("expected error for nested braces")
	}
}

func TestParseRejectsNonASCIILiteral(t *testing.T) {
	if _, err := Parse("/usérs"); err == nil {
		t.Fatalf("expected error for non-ASCII literal segment")
	}
}

func TestParseAcceptsMixedLiteralAndParam(t *testing.T) {
	p, err := Parse("/orders/{orderId}/items/{itemId}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.LiteralCount() != 2 || p.ParamCount() != 2 {
		t.Fatalf("expected 2 literal + 2 param segments, got %d/%d", p.LiteralCount(), p.ParamCount())
	}
}

func TestPriorityStaticOverParam(t *testing.T) {
	static, err := Parse("/users/me")
	if err != nil {
		t.Fatal(err)
	}
	param, err := Parse("/users/{id}")
	if err != nil {
		t.Fatal(err)
	}
	if static.Priority() <= param.Priority() {
		t.Fatalf("expected static path %q to outscore param path %q: %d vs %d",
			static, param, static.Priority(), param.Priority())
	}
}

func TestMatchExactLiteral(t *testing.T) {
	p, _ := Parse("/a/b")
	if _, ok := p.Match("/a/b"); !ok {
		t.Fatalf("expected exact literal match")
	}
	if _, ok := p.Match("/a/c"); ok {
		t.Fatalf("expected literal mismatch to fail")
	}
}

func TestMatchTrailingSlashPolicy(t *testing.T) {
	noSlash, _ := Parse("/a/b")
	if _, ok := noSlash.Match("/a/b/"); ok {
		t.Fatalf(`path_pattern("/a/b") must not match "/a/b/"`)
	}

	withSlash, _ := Parse("/a/b/")
	if _, ok := withSlash.Match("/a/b/"); !ok {
		t.Fatalf(`path_pattern("/a/b/") must match "/a/b/"`)
	}
}

func TestMatchParamCapturesValue(t *testing.T) {
	p, _ := Parse("/users/{id}")
	params, ok := p.Match("/users/42")
	if !ok || len(params) != 1 || params[0] != "42" {
		t.Fatalf("expected param capture [42], got %v ok=%v", params, ok)
	}
}

func TestMatchMultiSegmentParams(t *testing.T) {
	p, _ := Parse("/orders/{orderId}/items/{itemId}")
	params, ok := p.Match("/orders/abc/items/99")
	if !ok {
		t.Fatalf("expected match")
	}
	if params[0] != "abc" || params[1] != "99" {
		t.Fatalf("expected [abc 99], got %v", params)
	}
}

func TestMatchRejectsEmptyParamSegment(t *testing.T) {
	p, _ := Parse("/users/{id}")
	if _, ok := p.Match("/users/"); ok {
		t.Fatalf("expected empty parameter segment to fail to match")
	}
}

func TestMatchRejectsWrongSegmentCount(t *testing.T) {
	p, _ := Parse("/a/{id}")
	if _, ok := p.Match("/a/b/c"); ok {
		t.Fatalf("expected segment-count mismatch to fail")
	}
}

func TestMatchAllParamsAnyArity(t *testing.T) {
	p, _ := Parse("/{a}/{b}")
	if _, ok := p.Match("/x/y"); !ok {
		t.Fatalf("expected all-param pattern to match any same-arity path")
	}
}
