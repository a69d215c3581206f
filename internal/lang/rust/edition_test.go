package rust

import (
	"testing"

	"github.com/ben-ranford/unsafety/internal/tokens"
)

func relax(t *testing.T, src string) (string, bool) {
	t.Helper()
	stream, err := tokens.Lex(src)
	if err != nil {
		t.Fatalf("lex %q: %v", src, err)
	}
	relaxed, changed := RelaxEdition([]byte(src), stream)
	if len(relaxed) != len(src) {
		t.Fatalf("expected length %d to be kept, got %d", len(src), len(relaxed))
	}
	return string(relaxed), changed
}

func TestRelaxEditionRewritesQualifiers(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unsafe extern block",
			src:  `unsafe extern "C" { pub safe fn f(); safe static N: i32; }`,
			want: `       extern "C" { pub      fn f();      static N: i32; }`,
		},
		{
			name: "unsafe extern block without abi",
			src:  "unsafe extern { fn g(); }",
			want: "       extern { fn g(); }",
		},
		{
			name: "raw const borrow",
			src:  "let p = &raw const X;",
			want: "let p = &          X;",
		},
		{
			name: "raw mut borrow",
			src:  "let p = &raw mut x;",
			want: "let p = &    mut x;",
		},
		{
			name: "async closures",
			src:  "let a = async || {}; let b = async move |x| x;",
			want: "let a =       || {}; let b =       move |x| x;",
		},
		{
			name: "unsafe attribute",
			src:  "#[unsafe(no_mangle)] fn f() {}",
			want: "#[_nsafe(no_mangle)] fn f() {}",
		},
		{
			name: "nested in a fn body",
			src:  "fn f() {\n    let p = &raw const X;\n}",
			want: "fn f() {\n    let p = &          X;\n}",
		},
		{
			name: "after multibyte text",
			src:  "// é\nfn f() { let s = \"é\"; let p = &raw const X; }",
			want: "// é\nfn f() { let s = \"é\"; let p = &          X; }",
		},
		{
			name: "after a byte order mark",
			src:  "\ufeffunsafe extern {}",
			want: "\ufeff       extern {}",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := relax(t, tc.src)
			if !changed {
				t.Fatalf("expected %q to be rewritten", tc.src)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRelaxEditionLeavesOtherSourceAlone(t *testing.T) {
	for _, src := range []string{
		`unsafe extern "C" fn callback() {}`,
		"unsafe fn f() { unsafe { g(); } }",
		"let safe = raw; let x = async { 1 };",
		`let s = "unsafe extern {}";`,
		"#[allow(unsafe_code)] fn f() {}",
	} {
		got, changed := relax(t, src)
		if changed || got != src {
			t.Fatalf("expected %q to be unchanged, got %q", src, got)
		}
	}
}
