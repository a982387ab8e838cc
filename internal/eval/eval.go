// Package eval provides the static evaluator consumed by the search.
// The search treats evaluation as a pure function of the position; any
// implementation of Func can be plugged into the engine.
package eval

import (
	"github.com/kestrelchess/kestrel/internal/board"
)

// Func is a side-to-move-relative static evaluator in centipawns.
type Func func(*board.Position) int

// Piece values, middlegame and endgame.
var (
	valueMg = [6]int{124, 781, 825, 1276, 2538, 0}
	valueEg = [6]int{206, 854, 915, 1380, 2682, 0}
)

// Tempo is the side-to-move bonus. The search's null-move eval estimate
// depends on it.
const Tempo = 28

// Game phase weights per piece type (pawns contribute nothing).
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const maxPhase = 24

// Piece-square tables, white's point of view, a1 = index 0.
var psqtMg = [6][64]int{
	{ // Pawn
		0, 0, 0, 0, 0, 0, 0, 0,
		3, 3, 10, 19, 16, 19, 7, -5,
		-9, -15, 11, 15, 32, 22, 5, -22,
		-4, -23, 6, 20, 40, 17, 4, -8,
		13, 0, -13, 1, 11, -2, -13, 5,
		5, -12, -7, 22, -8, -5, -15, -8,
		-7, 7, -3, -13, 5, -16, 10, -8,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	{ // Knight
		-175, -92, -74, -73, -73, -74, -92, -175,
		-77, -41, -27, -15, -15, -27, -41, -77,
		-61, -17, 6, 12, 12, 6, -17, -61,
		-35, 8, 40, 49, 49, 40, 8, -35,
		-34, 13, 44, 51, 51, 44, 13, -34,
		-9, 22, 58, 53, 53, 58, 22, -9,
		-67, -27, 4, 37, 37, 4, -27, -67,
		-201, -83, -56, -26, -26, -56, -83, -201,
	},
	{ // Bishop
		-53, -5, -8, -23, -23, -8, -5, -53,
		-15, 8, 19, 4, 4, 19, 8, -15,
		-7, 21, -5, 17, 17, -5, 21, -7,
		-5, 11, 25, 39, 39, 25, 11, -5,
		-12, 29, 22, 31, 31, 22, 29, -12,
		-16, 6, 1, 11, 11, 1, 6, -16,
		-17, -14, 5, 0, 0, 5, -14, -17,
		-48, 1, -14, -23, -23, -14, 1, -48,
	},
	{ // Rook
		-31, -20, -14, -5, -5, -14, -20, -31,
		-21, -13, -8, 6, 6, -8, -13, -21,
		-25, -11, -1, 3, 3, -1, -11, -25,
		-13, -5, -4, -6, -6, -4, -5, -13,
		-27, -15, -4, 3, 3, -4, -15, -27,
		-22, -2, 6, 12, 12, 6, -2, -22,
		-2, 12, 16, 18, 18, 16, 12, -2,
		-17, -19, -1, 9, 9, -1, -19, -17,
	},
	{ // Queen
		3, -5, -5, 4, 4, -5, -5, 3,
		-3, 5, 8, 12, 12, 8, 5, -3,
		-3, 6, 13, 7, 7, 13, 6, -3,
		4, 5, 9, 8, 8, 9, 5, 4,
		0, 14, 12, 5, 5, 12, 14, 0,
		-4, 10, 6, 8, 8, 6, 10, -4,
		-5, 6, 10, 8, 8, 10, 6, -5,
		-2, -2, 1, -2, -2, 1, -2, -2,
	},
	{ // King
		271, 327, 271, 198, 198, 271, 327, 271,
		278, 303, 234, 179, 179, 234, 303, 278,
		195, 258, 169, 120, 120, 169, 258, 195,
		164, 190, 138, 98, 98, 138, 190, 164,
		154, 179, 105, 70, 70, 105, 179, 154,
		123, 145, 81, 31, 31, 81, 145, 123,
		88, 120, 65, 33, 33, 65, 120, 88,
		59, 89, 45, -1, -1, 45, 89, 59,
	},
}

var psqtEg = [6][64]int{
	{ // Pawn
		0, 0, 0, 0, 0, 0, 0, 0,
		-10, -6, 10, 0, 14, 7, -5, -19,
		-10, -10, -10, 4, 4, 3, -6, -4,
		6, -2, -8, -4, -13, -12, -10, -9,
		10, 5, 4, -5, -5, -5, 14, 9,
		28, 20, 21, 28, 30, 7, 6, 13,
		0, -11, 12, 21, 25, 19, 4, 7,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	{ // Knight
		-96, -65, -49, -21, -21, -49, -65, -96,
		-67, -54, -18, 8, 8, -18, -54, -67,
		-40, -27, -8, 29, 29, -8, -27, -40,
		-35, -2, 13, 28, 28, 13, -2, -35,
		-45, -16, 9, 39, 39, 9, -16, -45,
		-51, -44, -16, 17, 17, -16, -44, -51,
		-69, -50, -51, 12, 12, -51, -50, -69,
		-100, -88, -56, -17, -17, -56, -88, -100,
	},
	{ // Bishop
		-57, -30, -37, -12, -12, -37, -30, -57,
		-37, -13, -17, 1, 1, -17, -13, -37,
		-16, -1, -2, 10, 10, -2, -1, -16,
		-20, -6, 0, 17, 17, 0, -6, -20,
		-17, -1, -14, 15, 15, -14, -1, -17,
		-30, 6, 4, 6, 6, 4, 6, -30,
		-31, -20, -1, 1, 1, -1, -20, -31,
		-46, -42, -37, -24, -24, -37, -42, -46,
	},
	{ // Rook
		-9, -13, -10, -9, -9, -10, -13, -9,
		-12, -9, -1, -2, -2, -1, -9, -12,
		6, -8, -2, -6, -6, -2, -8, 6,
		-6, 1, -9, 7, 7, -9, 1, -6,
		-5, 8, 7, -6, -6, 7, 8, -5,
		6, 1, -7, 10, 10, -7, 1, 6,
		4, 5, 20, -5, -5, 20, 5, 4,
		18, 0, 19, 13, 13, 19, 0, 18,
	},
	{ // Queen
		-69, -57, -47, -26, -26, -47, -57, -69,
		-55, -31, -22, -4, -4, -22, -31, -55,
		-39, -18, -9, 3, 3, -9, -18, -39,
		-23, -3, 13, 24, 24, 13, -3, -23,
		-29, -6, 9, 21, 21, 9, -6, -29,
		-38, -18, -12, 1, 1, -12, -18, -38,
		-50, -27, -24, -8, -8, -24, -27, -50,
		-75, -52, -43, -36, -36, -43, -52, -75,
	},
	{ // King
		1, 45, 85, 76, 76, 85, 45, 1,
		53, 100, 133, 135, 135, 133, 100, 53,
		88, 130, 169, 175, 175, 169, 130, 88,
		103, 156, 172, 172, 172, 172, 156, 103,
		96, 166, 199, 199, 199, 199, 166, 96,
		92, 172, 184, 191, 191, 184, 172, 92,
		47, 121, 116, 131, 131, 116, 121, 47,
		11, 59, 73, 78, 78, 73, 59, 11,
	},
}

// Mobility weights per piece type (knight through queen).
var (
	mobilityMg = [6]int{0, 6, 5, 3, 2, 0}
	mobilityEg = [6]int{0, 4, 5, 5, 4, 0}
)

const (
	bishopPairMg = 48
	bishopPairEg = 56
)

// Evaluate returns the static evaluation of the position from the side to
// move's point of view, in centipawns.
func Evaluate(pos *board.Position) int {
	mg, eg := 0, 0
	phase := 0

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			phase += bb.PopCount() * phaseWeight[pt]
			for bb != 0 {
				sq := bb.PopLSB()
				rel := relativeSquare(c, sq)
				mg += sign * (valueMg[pt] + psqtMg[pt][rel])
				eg += sign * (valueEg[pt] + psqtEg[pt][rel])
			}
		}

		if pos.Pieces[c][board.Bishop].PopCount() >= 2 {
			mg += sign * bishopPairMg
			eg += sign * bishopPairEg
		}

		mMg, mEg := mobility(pos, c)
		mg += sign * mMg
		eg += sign * mEg
	}

	if phase > maxPhase {
		phase = maxPhase
	}
	score := (mg*phase + eg*(maxPhase-phase)) / maxPhase

	if pos.SideToMove == board.Black {
		score = -score
	}
	return score + Tempo
}

// mobility counts safe destination squares for c's minor and major pieces.
func mobility(pos *board.Position, c board.Color) (int, int) {
	them := c.Other()
	occupied := pos.AllOccupied
	// Squares attacked by enemy pawns are not worth counting.
	unsafe := pawnAttacksBB(pos, them)
	targets := ^pos.Occupied[c] &^ unsafe

	mg, eg := 0, 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		bb := pos.Pieces[c][pt]
		for bb != 0 {
			sq := bb.PopLSB()
			n := (board.AttacksBy(pt, c, sq, occupied) & targets).PopCount()
			mg += (n - 4) * mobilityMg[pt]
			eg += (n - 4) * mobilityEg[pt]
		}
	}
	return mg, eg
}

func pawnAttacksBB(pos *board.Position, c board.Color) board.Bitboard {
	pawns := pos.Pieces[c][board.Pawn]
	if c == board.White {
		return pawns.NorthWest() | pawns.NorthEast()
	}
	return pawns.SouthWest() | pawns.SouthEast()
}

// relativeSquare flips the square vertically for black so both sides index
// the tables from their own first rank.
func relativeSquare(c board.Color, sq board.Square) board.Square {
	if c == board.White {
		return sq
	}
	return sq ^ 56
}
