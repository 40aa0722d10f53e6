package database

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/txchain/foundation/blockchain/digest"
	"github.com/ethereum/go-ethereum/rlp"
)

// BlockHeader represents the fields that determine the identity of a block.
type BlockHeader struct {
	Number           uint64 `json:"number"`           // Height of the block in the chain.
	TransactionsRoot string `json:"transactionsRoot"` // Hex root summarizing the body, computed outside the block.
	ReceiptRoot      string `json:"receiptRoot"`      // Hex root summarizing the receipts, computed outside the block.
	TimeStamp        uint64 `json:"timeStamp"`        // Unix seconds the block was produced.
	ParentHash       string `json:"parentHash"`       // Hash of the previous block in the chain.
	ExtraData        string `json:"extraData"`        // Free form hex data.
	Nonce            string `json:"nonce"`            // Hex value produced by the consensus layer.
}

// encodedHeader is the positional form of the header that is RLP encoded.
// The slot order is fixed and must never change.
type encodedHeader struct {
	Number           uint64
	TransactionsRoot []byte
	ReceiptRoot      []byte
	TimeStamp        uint64
	ParentHash       []byte // UTF-8 bytes of the hex string, not the decoded hex.
	ExtraData        []byte
	Nonce            []byte
}

// encode produces the canonical header encoding.
func (h BlockHeader) encode() ([]byte, error) {
	var eh encodedHeader
	var err error

	eh.Number = h.Number
	eh.TimeStamp = h.TimeStamp
	eh.ParentHash = []byte(h.ParentHash)

	if eh.TransactionsRoot, err = hexField("transactionsRoot", h.TransactionsRoot); err != nil {
		return nil, err
	}
	if eh.ReceiptRoot, err = hexField("receiptRoot", h.ReceiptRoot); err != nil {
		return nil, err
	}
	if eh.ExtraData, err = hexField("extraData", h.ExtraData); err != nil {
		return nil, err
	}
	if eh.Nonce, err = hexField("nonce", h.Nonce); err != nil {
		return nil, err
	}

	enc, err := rlp.EncodeToBytes(&eh)
	if err != nil {
		return nil, fmt.Errorf("%w: rlp: %s", ErrInvalidHeaderField, err)
	}

	return enc, nil
}

// decodeHeader reconstructs a header from its canonical encoding.
func decodeHeader(enc []byte) (BlockHeader, error) {
	var eh encodedHeader
	if err := rlp.DecodeBytes(enc, &eh); err != nil {
		return BlockHeader{}, fmt.Errorf("%w: header: %s", ErrDecodeFailure, err)
	}

	h := BlockHeader{
		Number:           eh.Number,
		TransactionsRoot: hex.EncodeToString(eh.TransactionsRoot),
		ReceiptRoot:      hex.EncodeToString(eh.ReceiptRoot),
		TimeStamp:        eh.TimeStamp,
		ParentHash:       string(eh.ParentHash),
		ExtraData:        hex.EncodeToString(eh.ExtraData),
		Nonce:            hex.EncodeToString(eh.Nonce),
	}

	return h, nil
}

// normalize lower cases the hex fields so decoding an encoding reproduces
// the header exactly.
func (h BlockHeader) normalize() BlockHeader {
	h.TransactionsRoot = strings.ToLower(h.TransactionsRoot)
	h.ReceiptRoot = strings.ToLower(h.ReceiptRoot)
	h.ExtraData = strings.ToLower(h.ExtraData)
	h.Nonce = strings.ToLower(h.Nonce)
	return h
}

// hexField decodes a hex header field. An empty value encodes as an empty
// byte string.
func hexField(name string, value string) ([]byte, error) {
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidHeaderField, name, err)
	}
	return b, nil
}

// =============================================================================

// HeaderUpdate carries the header fields to merge into a block. Nil fields
// are left untouched.
type HeaderUpdate struct {
	Number           *uint64
	TransactionsRoot *string
	ReceiptRoot      *string
	TimeStamp        *uint64
	ParentHash       *string
	ExtraData        *string
	Nonce            *string
}

// BlockConfig represents the values used to construct a new block.
type BlockConfig struct {
	Number           uint64
	TransactionsRoot string
	ReceiptRoot      string
	TimeStamp        uint64 // Zero means now.
	ParentHash       string
	ExtraData        string
	Nonce            string
	Beneficiary      string
	Transactions     []Tx
}

// ChainHeight represents the behavior of a chain that can report its height
// so a new block can be numbered as the next block.
type ChainHeight interface {
	CurrentHeight() int
}

// =============================================================================

// Block represents a single record of the ledger. A block keeps the header
// and body views along with their encodings. Once finalized a block is read
// only.
type Block struct {
	header      BlockHeader
	beneficiary string
	hash        string
	body        []Tx

	headerEnc []byte
	bodyEnc   [][]byte

	hasHeader bool
	hasBody   bool
	finalized bool

	digest digest.Provider
	chain  ChainHeight
}

// WithDigest sets the digest provider used to hash the block. The default is
// digest.Default.
func WithDigest(p digest.Provider) func(b *Block) {
	return func(b *Block) {
		b.digest = p
	}
}

// WithChain provides the chain context used by NewBlock to number the block
// as the next block in that chain.
func WithChain(c ChainHeight) func(b *Block) {
	return func(b *Block) {
		b.chain = c
	}
}

// NewEmptyBlock constructs a block with no header or body. It's used to
// reconstruct a block from an encoding or a stored record.
func NewEmptyBlock(options ...func(b *Block)) *Block {
	b := Block{
		digest: digest.MustNew(digest.Default),
	}

	for _, option := range options {
		option(&b)
	}

	return &b
}

// NewBlock constructs a block from the specified configuration. The header
// encoding and the block hash are computed.
func NewBlock(cfg BlockConfig, options ...func(b *Block)) (*Block, error) {
	b := NewEmptyBlock(options...)

	number := cfg.Number
	if b.chain != nil {
		number = uint64(b.chain.CurrentHeight() + 1)
	}

	timeStamp := cfg.TimeStamp
	if timeStamp == 0 {
		timeStamp = uint64(time.Now().UTC().Unix())
	}

	header := BlockHeader{
		Number:           number,
		TransactionsRoot: cfg.TransactionsRoot,
		ReceiptRoot:      cfg.ReceiptRoot,
		TimeStamp:        timeStamp,
		ParentHash:       cfg.ParentHash,
		ExtraData:        cfg.ExtraData,
		Nonce:            cfg.Nonce,
	}

	if err := b.applyHeader(header); err != nil {
		return nil, err
	}

	if err := b.applyBody(cfg.Transactions); err != nil {
		return nil, err
	}

	b.beneficiary = cfg.Beneficiary
	b.hash = b.HeaderHash()

	return b, nil
}

// SetFullRecord replaces the header and body from a complete record. The
// encodings are recomputed but the stored hash is kept as is.
func (b *Block) SetFullRecord(bd BlockData) error {
	if b.finalized {
		return ErrBlockFinalized
	}

	header := bd.Header().normalize()
	headerEnc, err := header.encode()
	if err != nil {
		return err
	}

	bodyEnc, err := encodeBody(bd.Transactions)
	if err != nil {
		return err
	}

	b.header = header
	b.headerEnc = headerEnc
	b.body = copyTxs(bd.Transactions)
	b.bodyEnc = bodyEnc
	b.beneficiary = bd.Beneficiary
	b.hash = bd.Hash
	b.hasHeader = true
	b.hasBody = true

	return nil
}

// SetHeader merges the specified fields into the header and recomputes the
// header encoding. The block hash is not changed, call Rehash for that.
func (b *Block) SetHeader(hu HeaderUpdate) error {
	if b.finalized {
		return ErrBlockFinalized
	}

	header := b.header
	if hu.Number != nil {
		header.Number = *hu.Number
	}
	if hu.TransactionsRoot != nil {
		header.TransactionsRoot = *hu.TransactionsRoot
	}
	if hu.ReceiptRoot != nil {
		header.ReceiptRoot = *hu.ReceiptRoot
	}
	if hu.TimeStamp != nil {
		header.TimeStamp = *hu.TimeStamp
	}
	if hu.ParentHash != nil {
		header.ParentHash = *hu.ParentHash
	}
	if hu.ExtraData != nil {
		header.ExtraData = *hu.ExtraData
	}
	if hu.Nonce != nil {
		header.Nonce = *hu.Nonce
	}

	return b.applyHeader(header)
}

// SetHeaderFromEncoding replaces the header with the fields decoded from the
// positional header encoding. The block hash is not changed.
func (b *Block) SetHeaderFromEncoding(enc []byte) error {
	if b.finalized {
		return ErrBlockFinalized
	}

	header, err := decodeHeader(enc)
	if err != nil {
		return err
	}

	return b.applyHeader(header)
}

// SetBody replaces the transactions and recomputes the body encoding.
func (b *Block) SetBody(txs []Tx) error {
	if b.finalized {
		return ErrBlockFinalized
	}

	return b.applyBody(txs)
}

// SetBodyFromEncoding decodes each element as a transaction and APPENDS it
// to the existing body. Unlike the header decode path the body is not
// replaced.
func (b *Block) SetBodyFromEncoding(enc [][]byte) error {
	if b.finalized {
		return ErrBlockFinalized
	}

	txs := make([]Tx, 0, len(enc))
	for i, data := range enc {
		tx, err := DecodeTx(data)
		if err != nil {
			return fmt.Errorf("body element %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	for i := range enc {
		b.bodyEnc = append(b.bodyEnc, append([]byte(nil), enc[i]...))
	}
	b.body = append(b.body, txs...)
	b.hasBody = true

	return nil
}

// Rehash recomputes the block hash from the current header.
func (b *Block) Rehash() error {
	if b.finalized {
		return ErrBlockFinalized
	}

	b.hash = b.HeaderHash()
	return nil
}

// SetBeneficiary sets the identity receiving the block. It's not part of
// the header.
func (b *Block) SetBeneficiary(beneficiary string) error {
	if b.finalized {
		return ErrBlockFinalized
	}

	b.beneficiary = beneficiary
	return nil
}

// Finalize seals the block. After this call every setter returns
// ErrBlockFinalized.
func (b *Block) Finalize() {
	b.finalized = true
}

// =============================================================================

// HeaderHash returns the hex digest of the current header encoding. It's
// computed on every call.
func (b *Block) HeaderHash() string {
	return digest.Hex(b.digest, b.headerEnc)
}

// BodyHash returns the hex digest of the RLP framed body encoding.
func (b *Block) BodyHash() (string, error) {
	enc := b.bodyEnc
	if enc == nil {
		enc = [][]byte{}
	}

	data, err := rlp.EncodeToBytes(enc)
	if err != nil {
		return "", fmt.Errorf("encoding body: %w", err)
	}

	return digest.Hex(b.digest, data), nil
}

// IsHeaderPresent reports if a header has been set on the block.
func (b *Block) IsHeaderPresent() bool {
	return b.hasHeader
}

// IsBodyPresent reports if a body has been set on the block.
func (b *Block) IsBodyPresent() bool {
	return b.hasBody
}

// IsFinalized reports if the block has been sealed.
func (b *Block) IsFinalized() bool {
	return b.finalized
}

// Header returns the header view of the block.
func (b *Block) Header() BlockHeader {
	return b.header
}

// Transactions returns a copy of the body view of the block.
func (b *Block) Transactions() []Tx {
	return copyTxs(b.body)
}

// HeaderEncoding returns a copy of the canonical header encoding.
func (b *Block) HeaderEncoding() []byte {
	return append([]byte(nil), b.headerEnc...)
}

// BodyEncoding returns a copy of the body encoding.
func (b *Block) BodyEncoding() [][]byte {
	enc := make([][]byte, len(b.bodyEnc))
	for i := range b.bodyEnc {
		enc[i] = append([]byte(nil), b.bodyEnc[i]...)
	}
	return enc
}

// Hash returns the identity of the block.
func (b *Block) Hash() string {
	return b.hash
}

// Number returns the height of the block.
func (b *Block) Number() uint64 {
	return b.header.Number
}

// ParentHash returns the hash of the previous block.
func (b *Block) ParentHash() string {
	return b.header.ParentHash
}

// TimeStamp returns the time the block was produced.
func (b *Block) TimeStamp() uint64 {
	return b.header.TimeStamp
}

// Beneficiary returns the identity receiving the block.
func (b *Block) Beneficiary() string {
	return b.beneficiary
}

// DigestName returns the name of the algorithm used to hash the block.
func (b *Block) DigestName() string {
	return b.digest.Name()
}

// Record returns the full record of the block for storage.
func (b *Block) Record() BlockData {
	txs := copyTxs(b.body)
	if txs == nil {
		txs = []Tx{}
	}

	return BlockData{
		Number:           b.header.Number,
		ParentHash:       b.header.ParentHash,
		TransactionsRoot: b.header.TransactionsRoot,
		ReceiptRoot:      b.header.ReceiptRoot,
		TimeStamp:        b.header.TimeStamp,
		ExtraData:        b.header.ExtraData,
		Nonce:            b.header.Nonce,
		Beneficiary:      b.beneficiary,
		Hash:             b.hash,
		Transactions:     txs,
	}
}

// String implements the fmt.Stringer interface for logging.
func (b *Block) String() string {
	return fmt.Sprintf("%d:%s", b.header.Number, b.hash)
}

// =============================================================================

// applyHeader validates and stores the header along with its encoding.
func (b *Block) applyHeader(header BlockHeader) error {
	header = header.normalize()

	enc, err := header.encode()
	if err != nil {
		return err
	}

	b.header = header
	b.headerEnc = enc
	b.hasHeader = true

	return nil
}

// applyBody stores the transactions along with their encoding.
func (b *Block) applyBody(txs []Tx) error {
	enc, err := encodeBody(txs)
	if err != nil {
		return err
	}

	b.body = copyTxs(txs)
	b.bodyEnc = enc
	b.hasBody = true

	return nil
}

// encodeBody serializes each transaction independently.
func encodeBody(txs []Tx) ([][]byte, error) {
	enc := make([][]byte, 0, len(txs))
	for i, tx := range txs {
		data, err := tx.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding tx %d: %w", i, err)
		}
		enc = append(enc, data)
	}

	return enc, nil
}
