package value

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"empty string", FromString(""), true},
		{"string", FromString("x"), true},
		{"zero number", FromInt(0), true},
		{"zero float", FromFloat(0), true},
		{"empty list", ListOf(), true},
		{"canonical true", True(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", Null(), Null(), true},
		{"equal strings", FromString("a"), FromString("a"), true},
		{"unequal strings", FromString("a"), FromString("b"), false},
		{"number vs float same magnitude", FromInt(1), FromFloat(1), false},
		{"names ignored", FromInt(1).WithName("x"), FromInt(1).WithName("y"), true},
		{"equal lists", ListOf(FromInt(1), FromString("a")), ListOf(FromInt(1), FromString("a")), true},
		{"lists differ in length", ListOf(FromInt(1)), ListOf(FromInt(1), FromInt(2)), false},
		{"nested lists", ListOf(ListOf(FromInt(1))), ListOf(ListOf(FromInt(1))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Value
		want    int
		wantErr bool
	}{
		{"numbers", FromInt(1), FromInt(2), -1, false},
		{"equal numbers", FromInt(3), FromInt(3), 0, false},
		{"mixed numeric promotes", FromInt(2), FromFloat(1.5), 1, false},
		{"strings", FromString("a"), FromString("b"), -1, false},
		{"string vs number", FromString("1"), FromInt(1), 0, true},
		{"null", Null(), FromInt(1), 0, true},
		{"lists", ListOf(), ListOf(), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Compare(tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Compare() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "null"},
		{"string", FromString("foo"), "'foo'"},
		{"string needing escapes", FromString(`a'b\c`), `'a\'b\\c'`},
		{"number", FromInt(-7), "-7"},
		{"float", FromFloat(1.5), "1.5"},
		{"list", ListOf(FromInt(1), FromString("a"), Null()), "[1 'a' null]"},
		{"empty list", ListOf(), "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListAliasing(t *testing.T) {
	l := NewList(FromInt(1))
	v := FromList(l)
	l.Append(FromInt(2))

	got, ok := v.AsList()
	if !ok {
		t.Fatalf("AsList() failed on a list value")
	}
	if got.Len() != 2 {
		t.Errorf("value sees %d elements after append, want 2", got.Len())
	}
}
