package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocationID(t *testing.T) {
	// xxHash64("") is 0xEF46DB3751D8E999, xxHash64("test") is 0x4FDCCA5DDB678139.
	require.Equal(t, int32(0x51D8E999), LocationID(""))
	require.Equal(t, int32(0x5B678139), LocationID("test"))

	for _, loc := range []string{"Rec/Track/Best", "Rec/ProtoP/Charged", "Phys/StdAllLooseKaons/Particles"} {
		id := LocationID(loc)
		require.GreaterOrEqual(t, id, int32(0), loc)
		require.Equal(t, id, LocationID(loc))
	}

	require.NotEqual(t, LocationID("Rec/Track/Best"), LocationID("Rec/Track/Best2"))
}

func BenchmarkLocationID(b *testing.B) {
	for b.Loop() {
		LocationID("Phys/StdAllLooseKaons/Particles")
	}
}
