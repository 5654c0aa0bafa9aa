package featurereader

import (
	"github.com/grailbio/featureio/encoding/bed"
	"github.com/grailbio/featureio/encoding/vcf"
	"github.com/grailbio/featureio/feature"
)

// Codecs lists the codecs tried, in order, when Opts.Codec is nil.
var Codecs = []feature.Codec{
	vcf.Codec{},
	vcf.NewRedirectCodec(),
	bed.Codec{},
}

// FindCodec returns the first codec in Codecs that recognizes location.
func FindCodec(location string) (feature.Codec, error) {
	for _, c := range Codecs {
		if c.CanDecode(location) {
			return c, nil
		}
	}
	return nil, feature.Errorf(feature.ErrUnsupportedFormat, "%s: no codec recognizes this location", location)
}

func selectCodec(location string, c feature.Codec) (feature.Codec, error) {
	if c == nil {
		return FindCodec(location)
	}
	if !c.CanDecode(location) {
		return nil, feature.Errorf(feature.ErrUnsupportedFormat, "%s: %s codec cannot decode this location", location, c.Name())
	}
	return c, nil
}
