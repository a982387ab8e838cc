package board

import "fmt"

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	if c == White {
		if kingSide {
			return cr&WhiteKingSideCastle != 0
		}
		return cr&WhiteQueenSideCastle != 0
	}
	if kingSide {
		return cr&BlackKingSideCastle != 0
	}
	return cr&BlackQueenSideCastle != 0
}

// Position represents a complete chess position.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy bitboards (cached for efficiency)
	Occupied    [2]Bitboard // All pieces of each color
	AllOccupied Bitboard    // All pieces on the board

	// Game state
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Plies since last pawn move or capture (50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	// Zobrist hash for the transposition table
	Hash uint64

	// Pawn-structure hash key
	PawnKey uint64

	// King positions (cached for check detection)
	KingSquare [2]Square

	// Pieces currently giving check to the side to move
	Checkers Bitboard

	// Piece captured by the last MakeMove (NoPiece after a quiet move)
	Captured Piece

	// Plies since the last null move on this search path
	PliesFromNull int
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// GamePly returns the number of plies played from the initial position.
func (p *Position) GamePly() int {
	ply := 2 * (p.FullMoveNumber - 1)
	if p.SideToMove == Black {
		ply++
	}
	if ply < 0 {
		ply = 0
	}
	return ply
}

// Rule50 returns the half-move clock used by the fifty-move rule.
func (p *Position) Rule50() int {
	return p.HalfMoveClock
}

// CapturedPiece returns the piece taken by the last applied move.
func (p *Position) CapturedPiece() Piece {
	return p.Captured
}

// MovedPiece returns the piece sitting on the move's origin square.
func (p *Position) MovedPiece(m Move) Piece {
	return p.PieceAt(m.From())
}

// CaptureOrPromotion reports whether the move is a capture or a promotion.
func (p *Position) CaptureOrPromotion(m Move) bool {
	return m.IsCapture(p) || m.IsPromotion()
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)

	if p.AllOccupied&bb == 0 {
		return NoPiece
	}

	var c Color
	if p.Occupied[White]&bb != 0 {
		c = White
	} else {
		c = Black
	}

	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}

	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// PieceCount returns the total number of pieces on the board.
func (p *Position) PieceCount() int {
	return p.AllOccupied.PopCount()
}

// CanCastleAny reports whether either side retains any castling rights.
func (p *Position) CanCastleAny() bool {
	return p.CastlingRights != NoCastling
}

// NonPawnMaterial returns the summed value of c's pieces other than pawns
// and the king.
func (p *Position) NonPawnMaterial(c Color) int {
	v := 0
	for pt := Knight; pt <= Queen; pt++ {
		v += p.Pieces[c][pt].PopCount() * PieceValue[pt]
	}
	return v
}

// AdvancedPawnPush reports whether the move pushes a pawn deep into the
// opponent's half (relative rank 6 or beyond).
func (p *Position) AdvancedPawnPush(m Move) bool {
	piece := p.PieceAt(m.From())
	if piece == NoPiece || piece.Type() != Pawn {
		return false
	}
	if piece.Color() == White {
		return m.To().Rank() >= 5
	}
	return m.To().Rank() <= 2
}

// setPiece places a piece on a square (does not update hash).
func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb

	if pt == King {
		p.KingSquare[c] = sq
	}
}

// removePiece removes a piece from a square (does not update hash).
func (p *Position) removePiece(sq Square) Piece {
	piece := p.PieceAt(sq)
	if piece == NoPiece {
		return NoPiece
	}

	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb

	return piece
}

// movePiece moves a piece from one square to another (does not update hash).
func (p *Position) movePiece(from, to Square) {
	piece := p.PieceAt(from)
	if piece == NoPiece {
		return
	}

	c := piece.Color()
	pt := piece.Type()
	moveBB := SquareBB(from) | SquareBB(to)

	p.Pieces[c][pt] ^= moveBB
	p.Occupied[c] ^= moveBB
	p.AllOccupied ^= moveBB

	if pt == King {
		p.KingSquare[c] = to
	}
}

// updateOccupied recalculates occupancy bitboards from piece bitboards.
func (p *Position) updateOccupied() {
	p.Occupied[White] = Empty
	p.Occupied[Black] = Empty

	for pt := Pawn; pt <= King; pt++ {
		p.Occupied[White] |= p.Pieces[White][pt]
		p.Occupied[Black] |= p.Pieces[Black][pt]
	}

	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
}

// findKings locates and caches the king positions.
func (p *Position) findKings() {
	p.KingSquare[White] = p.Pieces[White][King].LSB()
	p.KingSquare[Black] = p.Pieces[Black][King].LSB()
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	s := "\n"
	for rank := 7; rank >= 0; rank-- {
		s += fmt.Sprintf("%d  ", rank+1)
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				s += ". "
			} else {
				s += piece.String() + " "
			}
		}
		s += "\n"
	}
	s += "\n   a b c d e f g h\n\n"
	s += fmt.Sprintf("Side to move: %s\n", p.SideToMove)
	s += fmt.Sprintf("Castling: %s\n", p.CastlingRights)
	s += fmt.Sprintf("En passant: %s\n", p.EnPassant)
	s += fmt.Sprintf("Half-move clock: %d\n", p.HalfMoveClock)
	s += fmt.Sprintf("Full move: %d\n", p.FullMoveNumber)
	s += fmt.Sprintf("Hash: %016x\n", p.Hash)
	return s
}

// Clear resets the position to an empty board.
func (p *Position) Clear() {
	*p = Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		Captured:       NoPiece,
	}
	p.KingSquare[White] = NoSquare
	p.KingSquare[Black] = NoSquare
}

// Validate checks basic structural invariants of the position.
func (p *Position) Validate() error {
	if p.Pieces[White][King].PopCount() != 1 {
		return fmt.Errorf("white must have exactly one king")
	}
	if p.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("black must have exactly one king")
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("pawns cannot be on rank 1 or 8")
	}
	return nil
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

// KeyAfter returns the Zobrist key the position would have after m, without
// making the move. Promotions, castling and en passant fall back to the
// plain from/to update, and changes to castling rights or the en passant
// file are not applied; the key is only used for TT prefetching where the
// occasional mismatch is harmless.
func (p *Position) KeyAfter(m Move) uint64 {
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)
	if piece == NoPiece {
		return p.Hash ^ zobristSideToMove
	}
	us := piece.Color()
	pt := piece.Type()

	key := p.Hash ^ zobristSideToMove
	key ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]
	if captured := p.PieceAt(to); captured != NoPiece {
		key ^= zobristPiece[captured.Color()][captured.Type()][to]
	}
	return key
}

// AttacksBy returns the squares a piece of the given type and color would
// attack from sq with the supplied occupancy.
func AttacksBy(pt PieceType, c Color, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return PawnAttacks(sq, c)
	case Knight:
		return KnightAttacks(sq)
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return KingAttacks(sq)
	}
	return Empty
}

// BlockersForKing returns pieces of either color that stand alone between
// an enemy slider and c's king. Moving one may discover a check.
func (p *Position) BlockersForKing(c Color) Bitboard {
	them := c.Other()
	ksq := p.KingSquare[c]
	blockers := Bitboard(0)

	snipers := (RookAttacks(ksq, 0) & (p.Pieces[them][Rook] | p.Pieces[them][Queen])) |
		(BishopAttacks(ksq, 0) & (p.Pieces[them][Bishop] | p.Pieces[them][Queen]))
	for snipers != 0 {
		sq := snipers.PopLSB()
		between := Between(sq, ksq) & p.AllOccupied
		if between != 0 && !between.More() {
			blockers |= between
		}
	}
	return blockers
}

// IsDiscoveryCheckOnKing reports whether m moves a piece that blocks a
// slider aimed at c's king.
func (p *Position) IsDiscoveryCheckOnKing(c Color, m Move) bool {
	return p.BlockersForKing(c)&SquareBB(m.From()) != 0
}

// GivesCheck reports whether m checks the opponent, without making the move.
func (p *Position) GivesCheck(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[them]
	from, to := m.From(), m.To()

	piece := p.PieceAt(from)
	if piece == NoPiece {
		return false
	}
	pt := piece.Type()

	occ := (p.AllOccupied &^ SquareBB(from)) | SquareBB(to)

	if m.IsCastling() {
		// Only the rook can deliver the check.
		var rookTo Square
		if to > from {
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookTo = NewSquare(3, from.Rank())
		}
		occ = (occ &^ SquareBB(rookHomeSquare(us, to > from))) | SquareBB(rookTo)
		return RookAttacks(rookTo, occ)&SquareBB(ksq) != 0
	}

	if m.IsEnPassant() {
		var capturedSq Square
		if us == White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		occ &^= SquareBB(capturedSq)
	}

	if m.IsPromotion() {
		pt = m.Promotion()
	}

	// Direct check from the destination square.
	if AttacksBy(pt, us, to, occ)&SquareBB(ksq) != 0 {
		return true
	}

	// Discovered check: a slider sees the king once from is vacated.
	sliders := (BishopAttacks(ksq, occ) & (p.Pieces[us][Bishop] | p.Pieces[us][Queen])) |
		(RookAttacks(ksq, occ) & (p.Pieces[us][Rook] | p.Pieces[us][Queen]))
	return sliders&^SquareBB(from) != 0
}

func rookHomeSquare(c Color, kingSide bool) Square {
	rank := 0
	if c == Black {
		rank = 7
	}
	if kingSide {
		return NewSquare(7, rank)
	}
	return NewSquare(0, rank)
}

// ComputePinned computes pieces of the side to move pinned to their king.
func (p *Position) ComputePinned() Bitboard {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	pinned := Bitboard(0)

	snipers := (RookAttacks(ksq, 0) & (p.Pieces[them][Rook] | p.Pieces[them][Queen])) |
		(BishopAttacks(ksq, 0) & (p.Pieces[them][Bishop] | p.Pieces[them][Queen]))
	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(sq, ksq) & p.AllOccupied
		if blockers.PopCount() == 1 && blockers&p.Occupied[us] != 0 {
			pinned |= blockers
		}
	}

	return pinned
}

// NullMoveUndo stores state needed to unmake a null move.
type NullMoveUndo struct {
	EnPassant     Square
	Hash          uint64
	Captured      Piece
	PliesFromNull int
}

// MakeNullMove passes the turn without moving. Used by null-move pruning.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{
		EnPassant:     p.EnPassant,
		Hash:          p.Hash,
		Captured:      p.Captured,
		PliesFromNull: p.PliesFromNull,
	}

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare
	p.Captured = NoPiece
	p.PliesFromNull = 0

	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove

	p.UpdateCheckers()
	return undo
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.EnPassant = undo.EnPassant
	p.Hash = undo.Hash
	p.Captured = undo.Captured
	p.PliesFromNull = undo.PliesFromNull
	p.SideToMove = p.SideToMove.Other()
	p.UpdateCheckers()
}

// HasNonPawnMaterial returns true if the side to move has pieces besides
// pawns and the king. Null-move pruning is unsound without them.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Pieces[us][Knight]|p.Pieces[us][Bishop]|p.Pieces[us][Rook]|p.Pieces[us][Queen] != 0
}

// Material returns the material balance (positive favors white).
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += p.Pieces[White][pt].PopCount() * PieceValue[pt]
		score -= p.Pieces[Black][pt].PopCount() * PieceValue[pt]
	}
	return score
}
