package mesh

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"gonum.org/v1/gonum/spatial/r3"
)

// GIfTI intents and encodings understood by the codec.
const (
	IntentPointSet = "NIFTI_INTENT_POINTSET"
	IntentTriangle = "NIFTI_INTENT_TRIANGLE"

	EncodingASCII      = "ASCII"
	EncodingBase64     = "Base64Binary"
	EncodingGZipBase64 = "GZipBase64Binary"
)

// ErrUnsupported is returned for GIfTI features the codec does not read,
// such as external binary files.
var ErrUnsupported = errors.New("unsupported gifti feature")

type giftiDoc struct {
	XMLName            xml.Name         `xml:"GIFTI"`
	Version            string           `xml:"Version,attr"`
	NumberOfDataArrays int              `xml:"NumberOfDataArrays,attr"`
	DataArrays         []giftiDataArray `xml:"DataArray"`
}

type giftiDataArray struct {
	Intent             string `xml:"Intent,attr"`
	DataType           string `xml:"DataType,attr"`
	ArrayIndexingOrder string `xml:"ArrayIndexingOrder,attr"`
	Dimensionality     int    `xml:"Dimensionality,attr"`
	Dim0               int    `xml:"Dim0,attr"`
	Dim1               int    `xml:"Dim1,attr,omitempty"`
	Encoding           string `xml:"Encoding,attr"`
	Endian             string `xml:"Endian,attr"`
	ExternalFileName   string `xml:"ExternalFileName,attr"`
	ExternalFileOffset string `xml:"ExternalFileOffset,attr"`
	Data               string `xml:"Data"`
}

// ReadGIfTI reads a surface from a .gii file.
func ReadGIfTI(path string) (*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := DecodeGIfTI(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// DecodeGIfTI parses a GIfTI document holding a point set and a triangle
// array.
func DecodeGIfTI(r io.Reader) (*Surface, error) {
	var doc giftiDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse gifti xml: %w", err)
	}

	s := &Surface{}
	var havePoints, haveTris bool
	for i, da := range doc.DataArrays {
		switch da.Intent {
		case IntentPointSet:
			vals, rows, cols, err := decodeDataArray(da)
			if err != nil {
				return nil, fmt.Errorf("data array %d: %w", i, err)
			}
			if cols != 3 {
				return nil, fmt.Errorf("data array %d: point set has %d columns, want 3", i, cols)
			}
			s.Points = make([]r3.Vec, rows)
			for p := 0; p < rows; p++ {
				s.Points[p] = r3.Vec{X: vals[3*p], Y: vals[3*p+1], Z: vals[3*p+2]}
			}
			havePoints = true
		case IntentTriangle:
			vals, rows, cols, err := decodeDataArray(da)
			if err != nil {
				return nil, fmt.Errorf("data array %d: %w", i, err)
			}
			if cols != 3 {
				return nil, fmt.Errorf("data array %d: triangle array has %d columns, want 3", i, cols)
			}
			s.Triangles = make([][3]int, rows)
			for t := 0; t < rows; t++ {
				s.Triangles[t] = [3]int{int(vals[3*t]), int(vals[3*t+1]), int(vals[3*t+2])}
			}
			haveTris = true
		}
	}

	if !havePoints || !haveTris {
		return nil, fmt.Errorf("gifti surface needs %s and %s arrays", IntentPointSet, IntentTriangle)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeDataArray(da giftiDataArray) ([]float64, int, int, error) {
	rows, cols := da.Dim0, 1
	if da.Dimensionality >= 2 {
		cols = da.Dim1
	}
	if rows < 0 || cols < 1 {
		return nil, 0, 0, fmt.Errorf("invalid dimensions %dx%d", rows, cols)
	}
	n := rows * cols

	var vals []float64
	switch da.Encoding {
	case EncodingASCII:
		fields := strings.Fields(da.Data)
		if len(fields) != n {
			return nil, 0, 0, fmt.Errorf("ascii data has %d values, want %d", len(fields), n)
		}
		vals = make([]float64, n)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, 0, 0, fmt.Errorf("ascii value %d: %w", i, err)
			}
			vals[i] = v
		}
	case EncodingBase64, EncodingGZipBase64:
		raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(da.Data), ""))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("base64: %w", err)
		}
		if da.Encoding == EncodingGZipBase64 {
			zr, err := zlib.NewReader(bytes.NewReader(raw))
			if err != nil {
				return nil, 0, 0, fmt.Errorf("zlib: %w", err)
			}
			raw, err = io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, 0, 0, fmt.Errorf("zlib: %w", err)
			}
		}
		vals, err = decodeBinary(raw, da.DataType, da.Endian, n)
		if err != nil {
			return nil, 0, 0, err
		}
	default:
		return nil, 0, 0, fmt.Errorf("%w: encoding %q", ErrUnsupported, da.Encoding)
	}

	if da.ArrayIndexingOrder == "ColumnMajorOrder" && cols > 1 {
		rowMajor := make([]float64, n)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				rowMajor[i*cols+j] = vals[j*rows+i]
			}
		}
		vals = rowMajor
	}
	return vals, rows, cols, nil
}

func decodeBinary(raw []byte, dataType, endian string, n int) ([]float64, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if endian == "BigEndian" {
		order = binary.BigEndian
	}

	size := 0
	switch dataType {
	case "NIFTI_TYPE_FLOAT32", "NIFTI_TYPE_INT32":
		size = 4
	case "NIFTI_TYPE_FLOAT64":
		size = 8
	case "NIFTI_TYPE_UINT8":
		size = 1
	default:
		return nil, fmt.Errorf("%w: data type %q", ErrUnsupported, dataType)
	}
	if len(raw) != n*size {
		return nil, fmt.Errorf("binary data has %d bytes, want %d", len(raw), n*size)
	}

	vals := make([]float64, n)
	for i := range vals {
		b := raw[i*size : (i+1)*size]
		switch dataType {
		case "NIFTI_TYPE_FLOAT32":
			vals[i] = float64(math.Float32frombits(order.Uint32(b)))
		case "NIFTI_TYPE_INT32":
			vals[i] = float64(int32(order.Uint32(b)))
		case "NIFTI_TYPE_FLOAT64":
			vals[i] = math.Float64frombits(order.Uint64(b))
		case "NIFTI_TYPE_UINT8":
			vals[i] = float64(b[0])
		}
	}
	return vals, nil
}

// WriteGIfTI encodes s as a two-array GIfTI document with zlib-compressed
// little-endian data.
func WriteGIfTI(w io.Writer, s *Surface) error {
	points := make([]byte, 0, len(s.Points)*12)
	for _, p := range s.Points {
		for _, v := range [3]float64{p.X, p.Y, p.Z} {
			points = binary.LittleEndian.AppendUint32(points, math.Float32bits(float32(v)))
		}
	}
	tris := make([]byte, 0, len(s.Triangles)*12)
	for _, t := range s.Triangles {
		for _, v := range t {
			tris = binary.LittleEndian.AppendUint32(tris, uint32(int32(v)))
		}
	}

	pointData, err := deflate(points)
	if err != nil {
		return err
	}
	triData, err := deflate(tris)
	if err != nil {
		return err
	}

	doc := giftiDoc{
		Version:            "1.0",
		NumberOfDataArrays: 2,
		DataArrays: []giftiDataArray{
			newArray(IntentPointSet, "NIFTI_TYPE_FLOAT32", len(s.Points), pointData),
			newArray(IntentTriangle, "NIFTI_TYPE_INT32", len(s.Triangles), triData),
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode gifti: %w", err)
	}
	return enc.Flush()
}

func newArray(intent, dataType string, rows int, data string) giftiDataArray {
	return giftiDataArray{
		Intent:             intent,
		DataType:           dataType,
		ArrayIndexingOrder: "RowMajorOrder",
		Dimensionality:     2,
		Dim0:               rows,
		Dim1:               3,
		Encoding:           EncodingGZipBase64,
		Endian:             "LittleEndian",
		Data:               data,
	}
}

func deflate(raw []byte) (string, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("zlib: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("zlib: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
