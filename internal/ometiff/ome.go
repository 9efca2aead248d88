package ometiff

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"imageassembly/internal/pixel"
)

const omeNamespace = "http://www.openmicroscopy.org/Schemas/OME/2016-06"

type omeDocument struct {
	XMLName xml.Name   `xml:"OME"`
	XMLNS   string     `xml:"xmlns,attr"`
	UUID    string     `xml:"UUID,attr,omitempty"`
	Creator string     `xml:"Creator,attr,omitempty"`
	Images  []omeImage `xml:"Image"`
}

type omeImage struct {
	ID     string    `xml:"ID,attr"`
	Name   string    `xml:"Name,attr,omitempty"`
	Pixels omePixels `xml:"Pixels"`
}

type omePixels struct {
	ID              string       `xml:"ID,attr"`
	DimensionOrder  string       `xml:"DimensionOrder,attr"`
	Type            string       `xml:"Type,attr"`
	SignificantBits int          `xml:"SignificantBits,attr,omitempty"`
	BigEndian       bool         `xml:"BigEndian,attr"`
	Interleaved     bool         `xml:"Interleaved,attr"`
	SizeX           int          `xml:"SizeX,attr"`
	SizeY           int          `xml:"SizeY,attr"`
	SizeC           int          `xml:"SizeC,attr"`
	SizeZ           int          `xml:"SizeZ,attr"`
	SizeT           int          `xml:"SizeT,attr"`
	Channels        []omeChannel `xml:"Channel"`
	TiffData        []omeTiff    `xml:"TiffData"`
}

type omeChannel struct {
	ID              string `xml:"ID,attr"`
	SamplesPerPixel int    `xml:"SamplesPerPixel,attr"`
}

type omeTiff struct {
	IFD        int `xml:"IFD,attr"`
	PlaneCount int `xml:"PlaneCount,attr"`
}

// OMEPixels is the subset of the OME-XML Pixels element this package reads
// back from a container.
type OMEPixels struct {
	UUID            string
	Name            string
	Type            pixel.Type
	SizeX           int
	SizeY           int
	SizeC           int
	BigEndian       bool
	Interleaved     bool
	SignificantBits int
}

func buildOMEXML(img Image, software string) (string, error) {
	samples := img.Format.Samples
	if samples < 1 {
		samples = 1
	}
	doc := omeDocument{
		XMLNS:   omeNamespace,
		UUID:    "urn:uuid:" + uuid.NewString(),
		Creator: software,
		Images: []omeImage{{
			ID:   "Image:0",
			Name: img.Name,
			Pixels: omePixels{
				ID:              "Pixels:0",
				DimensionOrder:  "XYCZT",
				Type:            img.Format.Type.String(),
				SignificantBits: img.SignificantBits,
				BigEndian:       img.Format.BigEndian,
				Interleaved:     true,
				SizeX:           img.Width,
				SizeY:           img.Height,
				SizeC:           samples,
				SizeZ:           1,
				SizeT:           1,
				Channels:        []omeChannel{{ID: "Channel:0:0", SamplesPerPixel: samples}},
				TiffData:        []omeTiff{{IFD: 0, PlaneCount: 1}},
			},
		}},
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode ome-xml: %w", err)
	}
	return xml.Header + string(out), nil
}

// ParseOMEXML extracts the first image's pixel attributes from an OME-XML
// ImageDescription.
func ParseOMEXML(description string) (*OMEPixels, error) {
	if !strings.Contains(description, "<OME") {
		return nil, fmt.Errorf("%w: description is not ome-xml", ErrMalformed)
	}
	var doc omeDocument
	if err := xml.Unmarshal([]byte(description), &doc); err != nil {
		return nil, fmt.Errorf("%w: decode ome-xml: %v", ErrMalformed, err)
	}
	if len(doc.Images) == 0 {
		return nil, fmt.Errorf("%w: ome-xml has no image", ErrMalformed)
	}
	img := doc.Images[0]
	typ, err := pixel.ParseType(img.Pixels.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &OMEPixels{
		UUID:            doc.UUID,
		Name:            img.Name,
		Type:            typ,
		SizeX:           img.Pixels.SizeX,
		SizeY:           img.Pixels.SizeY,
		SizeC:           img.Pixels.SizeC,
		BigEndian:       img.Pixels.BigEndian,
		Interleaved:     img.Pixels.Interleaved,
		SignificantBits: img.Pixels.SignificantBits,
	}, nil
}
