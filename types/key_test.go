package types

import "testing"

type sensorReading struct {
	Celsius float64
}

func TestKeyOf_Identity(t *testing.T) {
	t.Parallel()

	a := KeyOf[sensorReading]()
	b := KeyOf[sensorReading]()
	if a != b {
		t.Fatalf("same type must yield equal keys: %v vs %v", a, b)
	}

	p := KeyOf[*sensorReading]()
	if a == p {
		t.Fatalf("value and pointer types must yield distinct keys")
	}

	if a.IsZero() {
		t.Fatalf("instantiated key must not be zero")
	}
	if a.String() == "<none>" {
		t.Fatalf("instantiated key must render its type name")
	}
}

func TestKeyFor_DynamicType(t *testing.T) {
	t.Parallel()

	v := &sensorReading{Celsius: 21}
	if KeyFor(v) != KeyOf[*sensorReading]() {
		t.Fatalf("KeyFor must match KeyOf for the dynamic type")
	}

	var zero Key
	if !zero.IsZero() {
		t.Fatalf("zero key must report IsZero")
	}
	if KeyFor(nil) != zero {
		t.Fatalf("KeyFor(nil) must be the zero key")
	}
	if zero.Type() != nil {
		t.Fatalf("zero key must expose a nil type")
	}
}
