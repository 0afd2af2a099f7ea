package linker_test

import (
	"testing"

	"github.com/funvibe/kestrel/internal/linker"
)

// FuzzUnmarshal feeds arbitrary bytes to the image decoder; it must reject
// them with an error, never a panic, and anything it accepts must validate.
func FuzzUnmarshal(f *testing.F) {
	_, prog := build(f, "var a = 1; print a;")
	if data, err := linker.Marshal(prog); err == nil {
		f.Add(data)
	}
	f.Add([]byte("KSBC"))
	f.Add([]byte("KSBC\x01\xa0"))

	f.Fuzz(func(t *testing.T, data []byte) {
		prog, err := linker.Unmarshal(data)
		if err != nil {
			return
		}
		if err := prog.Validate(); err != nil {
			t.Errorf("accepted an invalid image: %v", err)
		}
	})
}
