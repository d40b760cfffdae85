package importer

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: a numeric epoch is always rendered as a prefix, the unset
// sentinel never appears in the output.
func TestFormatEVREpochHandling(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("numeric epoch becomes a prefix", prop.ForAll(
		func(epoch uint32, version, release string) bool {
			e := strconv.FormatUint(uint64(epoch), 10)
			return FormatEVR(e, version, release) == e+":"+version+"-"+release
		},
		gen.UInt32(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("unset epoch is dropped", prop.ForAll(
		func(version, release string) bool {
			return FormatEVR("(none)", version, release) == version+"-"+release
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
