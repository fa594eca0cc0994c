package board

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const boardSquares = 8

var (
	lightSquareColor = color.RGBA{R: 0xf0, G: 0xd9, B: 0xb5, A: 0xff}
	darkSquareColor  = color.RGBA{R: 0xb5, G: 0x88, B: 0x63, A: 0xff}
	boardMarginColor = color.RGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}
	coordinateColor  = color.RGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}
)

// RenderPNG rasterizes the position described by fen into a PNG with
// the given square size in pixels. File and rank coordinates are drawn
// in the margin.
func RenderPNG(fen string, squareSize int) ([]byte, error) {
	if squareSize <= 0 {
		squareSize = 64
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	boardMap := nchess.NewGame(opt).Position().Board().SquareMap()

	margin := squareSize / 3
	total := squareSize*boardSquares + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(boardMarginColor), image.Point{}, imagedraw.Src)
	origin := image.Point{X: margin, Y: margin}

	ranks := []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files := []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}

	for row, rank := range ranks {
		for col, file := range files {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			rect := image.Rect(x, y, x+squareSize, y+squareSize)
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(img, rect, image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)

			piece := boardMap[sq]
			if piece == nchess.NoPiece {
				continue
			}
			glyph, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return nil, err
			}
			imagedraw.Draw(img, rect, glyph, image.Point{}, imagedraw.Over)
		}
	}

	drawCoordinates(img, squareSize, origin, margin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquareColor
	}
	return lightSquareColor
}

func drawCoordinates(img *image.RGBA, squareSize int, origin image.Point, margin int) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(coordinateColor),
		Face: basicfont.Face7x13,
	}

	for col := 0; col < boardSquares; col++ {
		label := string(rune('a' + col))
		x := origin.X + col*squareSize + squareSize/2 - 3
		y := origin.Y + boardSquares*squareSize + margin/2 + 4
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(label)
	}
	for row := 0; row < boardSquares; row++ {
		label := string(rune('8' - row))
		x := origin.X - margin/2 - 3
		y := origin.Y + row*squareSize + squareSize/2 + 4
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(label)
	}
}
