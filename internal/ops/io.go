// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ops

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mlnoga/rawedge/internal/raw"
)

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func IsPathAllowed(p string) bool {
	if filepath.IsAbs(p) {
		return false // relative paths only
	}
	if strings.Contains(p, "..") {
		return false // no going outside the tree
	}
	return true
}

// Load a single image from a single filename. Raw files are decoded directly,
// PNG, JPEG, GIF, TIFF and BMP files are imported and optionally resized.
// Takes zero inputs, produces one output
type OpLoad struct {
	OpBase
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
	Width    int    `json:"width"`  // resize imported files to this width, if positive
	Height   int    `json:"height"` // resize imported files to this height, if positive
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadDefault() }) } // register the operator for JSON decoding

func NewOpLoadDefault() *OpLoad { return NewOpLoad(0, "") }

func NewOpLoad(id int, fileName string) *OpLoad {
	return &OpLoad{
		OpBase:   OpBase{Type: "load", Active: true},
		ID:       id,
		FileName: fileName,
	}
}

func (op *OpLoad) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, fmt.Errorf("%s operator with non-zero input", op.Type)
	}
	if !IsPathAllowed(op.FileName) {
		return nil, errors.New("filename outside current directory tree, aborting")
	}
	out := func() (*raw.Image, error) {
		return op.Apply(nil, c)
	}
	return []Promise{out}, nil
}

// Loads the image from file. Ignores any img argument provided
func (op *OpLoad) Apply(img *raw.Image, c *Context) (result *raw.Image, err error) {
	if raw.IsPreviewFile(op.FileName) {
		img, err = raw.Import(op.FileName, op.Width, op.Height, c.Log)
	} else {
		img, err = c.Decoder().DecodeFile(op.FileName)
	}
	if err != nil {
		return nil, err
	}
	img.ID = op.ID

	warning := ""
	if isFlat(img) {
		warning = "; WARNING flat image has no edges"
	}
	fmt.Fprintf(c.Log, "%d: Loaded %s pixel image from %s%s\n", img.ID, img.DimensionsToString(), img.FileName, warning)
	return img, nil
}

// Returns true if all pixels have the same value
func isFlat(img *raw.Image) bool {
	if img.NumPixels() == 0 {
		return true
	}
	first := img.Value(0, 0)
	for y := 0; y < int(img.Height); y++ {
		for x := 0; x < int(img.Width); x++ {
			if img.Value(x, y) != first {
				return false
			}
		}
	}
	return true
}

// Load many images from a slice of filename patterns with wildcards.
// Takes zero inputs, produces n outputs
type OpLoadMany struct {
	OpBase
	FilePatterns []string `json:"filePatterns"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadManyDefault() }) } // register the operator for JSON decoding

func NewOpLoadManyDefault() *OpLoadMany { return NewOpLoadMany(nil) }

func NewOpLoadMany(filePatterns []string) *OpLoadMany {
	return &OpLoadMany{
		OpBase:       OpBase{Type: "loadMany", Active: true},
		FilePatterns: filePatterns,
	}
}

// Turn filename wildcards into list of file load operators
func (op *OpLoadMany) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, fmt.Errorf("%s operator with non-zero input", op.Type)
	}
	for _, pattern := range op.FilePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if !IsPathAllowed(match) {
				fmt.Fprintf(c.Log, "Pattern match %s outside current directory tree, skipping\n", match)
				continue
			}
			promises, err := NewOpLoad(len(outs), match).MakePromises(nil, c)
			if err != nil {
				return nil, err
			}
			outs = append(outs, promises...)
		}
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%s operator with no files to load from pattern %v", op.Type, op.FilePatterns)
	}
	fmt.Fprintf(c.Log, "Found %d files.\n", len(outs))
	return outs, nil
}

// Saves given promise under a given filename, with pattern expansion for %d based on the image id.
// Raw files are written as is. Preview files are written by suffix, optionally as a direction preview.
// Takes one input, produces one output (the materialized but unchanged input)
type OpSave struct {
	OpUnaryBase
	FilePattern string `json:"filePattern"`
	Quality     int    `json:"quality"`    // JPEG quality
	Directions  bool   `json:"directions"` // render edge maps with hue by direction
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveDefault() }) } // register the operator for JSON decoding

func NewOpSaveDefault() *OpSave { return NewOpSave("") }

func NewOpSave(filePattern string) *OpSave {
	op := OpSave{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "save", Active: true}},
		FilePattern: filePattern,
		Quality:     95,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpSave) Apply(img *raw.Image, c *Context) (result *raw.Image, err error) {
	if op.FilePattern == "" {
		return img, nil
	}
	fileName := op.FilePattern
	if strings.Contains(fileName, "%d") {
		fileName = fmt.Sprintf(op.FilePattern, img.ID)
	}
	if !IsPathAllowed(fileName) {
		return nil, fmt.Errorf("%d: filename %s outside current directory tree", img.ID, fileName)
	}

	if raw.IsPreviewFile(fileName) {
		preview := img
		if op.Directions {
			preview = raw.DirectionPreview(img)
		}
		fmt.Fprintf(c.Log, "%d: Writing %s pixel preview to %s\n", img.ID, img.DimensionsToString(), fileName)
		err = preview.WritePreviewFile(fileName, op.Quality)
	} else if strings.HasSuffix(strings.ToLower(fileName), ".raw") {
		fmt.Fprintf(c.Log, "%d: Writing %s pixel raw image to %s\n", img.ID, img.DimensionsToString(), fileName)
		err = img.WriteFile(fileName)
	} else {
		err = fmt.Errorf("unknown suffix")
	}
	if err != nil {
		return nil, fmt.Errorf("%d: error writing to file %s: %w", img.ID, fileName, err)
	}
	return img, nil
}
