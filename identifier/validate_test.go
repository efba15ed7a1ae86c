package identifier

import "testing"

func TestNormalizeDOI(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://doi.org/10.1234/ABC.def", "10.1234/ABC.def"},
		{"https://dx.doi.org/10.1234/ABC.def", "10.1234/ABC.def"},
		{"doi:10.1234/ABC.def", "10.1234/ABC.def"},
		{"  10.1234/ABC.def  ", "10.1234/ABC.def"},
		{"10.1234/MixedCaseSuffix", "10.1234/MixedCaseSuffix"},
	}
	for _, c := range cases {
		if got := NormalizeDOI(c.in); got != c.want {
			t.Errorf("NormalizeDOI(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeDOI_Idempotent(t *testing.T) {
	inputs := []string{"https://doi.org/10.1234/ABC.def", "10.1/x"}
	for _, in := range inputs {
		once := NormalizeDOI(in)
		twice := NormalizeDOI(once)
		if once != twice {
			t.Errorf("normalize not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestValidateDOI_NormalizeCommute(t *testing.T) {
	inputs := []string{"https://doi.org/10.1234/ABC.def", "not-a-doi", "10.1/x"}
	for _, in := range inputs {
		if ValidateDOI(NormalizeDOI(in)) != ValidateDOI(in) {
			t.Errorf("validate(normalize(x)) != validate(x) for %q", in)
		}
	}
}

func TestValidateISBN10(t *testing.T) {
	if !ValidateISBN10("0306406152") {
		t.Fatal("expected valid ISBN-10")
	}
	if ValidateISBN10("0306406151") {
		t.Fatal("expected invalid checksum to fail")
	}
}

func TestValidateISBN13(t *testing.T) {
	if !ValidateISBN13("9780306406157") {
		t.Fatal("expected valid ISBN-13")
	}
	if ValidateISBN13("9780306406158") {
		t.Fatal("expected invalid checksum to fail")
	}
}

func TestValidateISSN(t *testing.T) {
	if !ValidateISSN("1537-744X") {
		t.Fatal("expected valid ISSN with X check digit")
	}
	if ValidateISSN("1537-7441") {
		t.Fatal("expected invalid checksum to fail")
	}
}

func TestValidateArxiv(t *testing.T) {
	valid := []string{"2101.00001", "2101.00001v2", "cs/0501001", "cs/0501001v1"}
	for _, v := range valid {
		if !ValidateArxiv(v) {
			t.Errorf("expected %q to be a valid arXiv id shape", v)
		}
	}
	invalid := []string{"not-an-id", "21.001", "cs/123"}
	for _, v := range invalid {
		if ValidateArxiv(v) {
			t.Errorf("expected %q to be rejected", v)
		}
	}
}

func TestParseYear(t *testing.T) {
	y, ok := ParseYear("Published March 2021, revised 2022")
	if !ok || y != 2021 {
		t.Fatalf("got (%d, %v), want (2021, true)", y, ok)
	}
	if _, ok := ParseYear("no year here"); ok {
		t.Fatal("expected no year found")
	}
}
