// Package nifti writes single-file NIfTI-1 volumes (.nii / .nii.gz).
//
// Only the subset needed to serialize converter output is implemented:
// 3-D float32 images with a diagonal voxel-to-mm affine. The sform
// carries the affine; the qform is left unset.
package nifti

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// header is the fixed 348-byte NIfTI-1 header
type header struct {
	SizeofHdr    int32
	DataType     [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte
	Dim          [8]int16
	IntentP1     float32
	IntentP2     float32
	IntentP3     float32
	IntentCode   int16
	Datatype     int16
	Bitpix       int16
	SliceStart   int16
	Pixdim       [8]float32
	VoxOffset    float32
	SclSlope     float32
	SclInter     float32
	SliceEnd     int16
	SliceCode    byte
	XyztUnits    byte
	CalMax       float32
	CalMin       float32
	SliceDur     float32
	Toffset      float32
	Glmax        int32
	Glmin        int32
	Descrip      [80]byte
	AuxFile      [24]byte
	QformCode    int16
	SformCode    int16
	QuaternB     float32
	QuaternC     float32
	QuaternD     float32
	QoffsetX     float32
	QoffsetY     float32
	QoffsetZ     float32
	SrowX        [4]float32
	SrowY        [4]float32
	SrowZ        [4]float32
	IntentName   [16]byte
	Magic        [4]byte
}

const (
	dtFloat32 = 16
	unitsMM   = 2
	voxOffset = 352
)

// Image is a 3-D float32 volume with a voxel-to-mm affine
type Image struct {
	Nx, Ny, Nz int
	Affine     [4][4]float64
	Data       []float32 // x fastest, then y, then z
	Descrip    string
}

// Write serializes the image to w uncompressed
func (img *Image) Write(w io.Writer) error {
	if img.Nx <= 0 || img.Ny <= 0 || img.Nz <= 0 {
		return fmt.Errorf("invalid dimensions %dx%dx%d", img.Nx, img.Ny, img.Nz)
	}
	if want := img.Nx * img.Ny * img.Nz; len(img.Data) != want {
		return fmt.Errorf("data length %d does not match dimensions %dx%dx%d", len(img.Data), img.Nx, img.Ny, img.Nz)
	}

	hdr := header{
		SizeofHdr: 348,
		Regular:   'r',
		Datatype:  dtFloat32,
		Bitpix:    32,
		VoxOffset: voxOffset,
		SclSlope:  1,
		XyztUnits: unitsMM,
		SformCode: 1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	hdr.Dim = [8]int16{3, int16(img.Nx), int16(img.Ny), int16(img.Nz), 1, 1, 1, 1}
	hdr.Pixdim = [8]float32{1,
		float32(img.Affine[0][0]),
		float32(img.Affine[1][1]),
		float32(img.Affine[2][2]),
		1, 1, 1, 1}
	for i := 0; i < 4; i++ {
		hdr.SrowX[i] = float32(img.Affine[0][i])
		hdr.SrowY[i] = float32(img.Affine[1][i])
		hdr.SrowZ[i] = float32(img.Affine[2][i])
	}
	copy(hdr.Descrip[:], img.Descrip)

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	// Extension flag: none
	if _, err := w.Write([]byte{0, 0, 0, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, img.Data); err != nil {
		return fmt.Errorf("writing voxel data: %w", err)
	}
	return nil
}

// WriteFile writes the image to path, gzip-compressed when the name
// ends in .gz. The file is written to a temp sibling and renamed into
// place so a failed write never leaves a partial artifact behind.
func WriteFile(path string, img *Image) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var w io.Writer = tmp
	var gz *gzip.Writer
	if filepath.Ext(path) == ".gz" {
		gz = gzip.NewWriter(tmp)
		w = gz
	}

	if err = img.Write(w); err != nil {
		return err
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
