// drbg.go: NIST SP 800-90A deterministic random bit generators.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	drbgEntropyLen = 32
	drbgNonceLen   = 16
	// drbgReseedInterval triggers an automatic reseed from the entropy
	// source after this many generate calls.
	drbgReseedInterval = 1 << 24
)

var errDRBGNotInstantiated = errors.New("drbg used before Init")

func readEntropy(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("entropy source: %w", err)
	}
	return buf, nil
}

// drbgCore is the shared instantiate/reseed/generate skeleton; mech
// supplies the mechanism-specific state transitions.
type drbgCore struct {
	env     RNGEnv
	mech    drbgMechanism
	counter uint64
	ready   bool
}

type drbgMechanism interface {
	instantiate(entropy, nonce, pers []byte) error
	reseed(entropy, additional []byte) error
	generate(dst, additional []byte, counter uint64) error
	wipe()
}

func (d *drbgCore) Init(seed []byte) error {
	entropy, err := readEntropy(d.env.Entropy, drbgEntropyLen)
	if err != nil {
		return err
	}
	nonce, err := readEntropy(d.env.Entropy, drbgNonceLen)
	if err != nil {
		return err
	}
	err = d.mech.instantiate(entropy, nonce, seed)
	Zeroize(entropy)
	Zeroize(nonce)
	if err != nil {
		return err
	}
	d.counter = 1
	d.ready = true
	return nil
}

func (d *drbgCore) Reseed(seed []byte) error {
	if !d.ready {
		return errDRBGNotInstantiated
	}
	entropy, err := readEntropy(d.env.Entropy, drbgEntropyLen)
	if err != nil {
		return err
	}
	err = d.mech.reseed(entropy, seed)
	Zeroize(entropy)
	if err != nil {
		return err
	}
	d.counter = 1
	return nil
}

func (d *drbgCore) GetBytes(dst, additional []byte) error {
	if !d.ready {
		return errDRBGNotInstantiated
	}
	if d.counter > drbgReseedInterval {
		if err := d.Reseed(additional); err != nil {
			return err
		}
		additional = nil
	}
	if err := d.mech.generate(dst, additional, d.counter); err != nil {
		return err
	}
	d.counter++
	return nil
}

func (d *drbgCore) End() error {
	d.mech.wipe()
	d.ready = false
	return nil
}

// hmacDRBG is HMAC_DRBG with SHA-256.
type hmacDRBG struct {
	k, v []byte
}

func (h *hmacDRBG) mac(parts ...[]byte) []byte {
	m := hmac.New(sha256.New, h.k)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

func (h *hmacDRBG) update(provided ...[]byte) {
	h.k = h.mac(append([][]byte{h.v, {0x00}}, provided...)...)
	h.v = h.mac(h.v)
	if totalLen(provided) == 0 {
		return
	}
	h.k = h.mac(append([][]byte{h.v, {0x01}}, provided...)...)
	h.v = h.mac(h.v)
}

func totalLen(parts [][]byte) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return n
}

func (h *hmacDRBG) instantiate(entropy, nonce, pers []byte) error {
	h.k = make([]byte, sha256.Size)
	h.v = make([]byte, sha256.Size)
	for i := range h.v {
		h.v[i] = 0x01
	}
	h.update(entropy, nonce, pers)
	return nil
}

func (h *hmacDRBG) reseed(entropy, additional []byte) error {
	h.update(entropy, additional)
	return nil
}

func (h *hmacDRBG) generate(dst, additional []byte, _ uint64) error {
	if len(additional) > 0 {
		h.update(additional)
	}
	for off := 0; off < len(dst); {
		h.v = h.mac(h.v)
		off += copy(dst[off:], h.v)
	}
	h.update(additional)
	return nil
}

func (h *hmacDRBG) wipe() {
	Zeroize(h.k)
	Zeroize(h.v)
}

// hashDRBG is Hash_DRBG with SHA-256 (seedlen 440 bits).
type hashDRBG struct {
	v, c []byte
}

const hashDRBGSeedLen = 55

// hashDF is the Hash_df derivation function.
func hashDF(n int, parts ...[]byte) []byte {
	out := make([]byte, 0, n+sha256.Size)
	var hdr [5]byte
	binary.BigEndian.PutUint32(hdr[1:], uint32(n*8))
	for counter := byte(1); len(out) < n; counter++ {
		hdr[0] = counter
		h := sha256.New()
		h.Write(hdr[:])
		for _, p := range parts {
			h.Write(p)
		}
		out = h.Sum(out)
	}
	return out[:n]
}

// addMod adds x into v as big-endian integers modulo 2^(8*len(v)).
func addMod(v, x []byte) {
	var carry uint16
	for i, j := len(v)-1, len(x)-1; i >= 0; i, j = i-1, j-1 {
		sum := uint16(v[i]) + carry
		if j >= 0 {
			sum += uint16(x[j])
		}
		v[i] = byte(sum)
		carry = sum >> 8
	}
}

func (h *hashDRBG) instantiate(entropy, nonce, pers []byte) error {
	h.v = hashDF(hashDRBGSeedLen, entropy, nonce, pers)
	h.c = hashDF(hashDRBGSeedLen, []byte{0x00}, h.v)
	return nil
}

func (h *hashDRBG) reseed(entropy, additional []byte) error {
	h.v = hashDF(hashDRBGSeedLen, []byte{0x01}, h.v, entropy, additional)
	h.c = hashDF(hashDRBGSeedLen, []byte{0x00}, h.v)
	return nil
}

func (h *hashDRBG) generate(dst, additional []byte, counter uint64) error {
	if len(additional) > 0 {
		w := sha256.New()
		w.Write([]byte{0x02})
		w.Write(h.v)
		w.Write(additional)
		addMod(h.v, w.Sum(nil))
	}

	data := append([]byte(nil), h.v...)
	for off := 0; off < len(dst); {
		sum := sha256.Sum256(data)
		off += copy(dst[off:], sum[:])
		addMod(data, []byte{1})
	}
	Zeroize(data)

	w := sha256.New()
	w.Write([]byte{0x03})
	w.Write(h.v)
	addMod(h.v, w.Sum(nil))
	addMod(h.v, h.c)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], counter)
	addMod(h.v, ctr[:])
	return nil
}

func (h *hashDRBG) wipe() {
	Zeroize(h.v)
	Zeroize(h.c)
}

// ctrDRBG is CTR_DRBG with AES-256 and the block cipher derivation function.
type ctrDRBG struct {
	block cipher.Block
	key   []byte
	v     [16]byte
}

const (
	ctrDRBGKeyLen  = 32
	ctrDRBGSeedLen = ctrDRBGKeyLen + aes.BlockSize
)

func newAES(key []byte) (cipher.Block, error) {
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ctr_drbg: %w", err)
	}
	return b, nil
}

// bcc is the CBC-MAC chaining function of SP 800-90A section 10.3.3.
func bcc(b cipher.Block, data []byte) []byte {
	chain := make([]byte, aes.BlockSize)
	for i := 0; i < len(data); i += aes.BlockSize {
		xorBytes(chain, chain, data[i:i+aes.BlockSize])
		b.Encrypt(chain, chain)
	}
	return chain
}

// blockCipherDF is Block_Cipher_df with AES-256.
func blockCipherDF(n int, parts ...[]byte) ([]byte, error) {
	l := totalLen(parts)
	s := make([]byte, 8, 8+l+1+aes.BlockSize)
	binary.BigEndian.PutUint32(s[0:4], uint32(l))
	binary.BigEndian.PutUint32(s[4:8], uint32(n))
	for _, p := range parts {
		s = append(s, p...)
	}
	s = append(s, 0x80)
	for len(s)%aes.BlockSize != 0 {
		s = append(s, 0)
	}

	k := make([]byte, ctrDRBGKeyLen)
	for i := range k {
		k[i] = byte(i)
	}
	b, err := newAES(k)
	if err != nil {
		return nil, err
	}

	temp := make([]byte, 0, ctrDRBGSeedLen+aes.BlockSize)
	iv := make([]byte, aes.BlockSize, aes.BlockSize+len(s))
	for i := uint32(0); len(temp) < ctrDRBGSeedLen; i++ {
		binary.BigEndian.PutUint32(iv[0:4], i)
		temp = append(temp, bcc(b, append(iv[:aes.BlockSize], s...))...)
	}

	defer Zeroize(temp)
	if b, err = newAES(temp[:ctrDRBGKeyLen]); err != nil {
		return nil, err
	}
	x := append([]byte(nil), temp[ctrDRBGKeyLen:ctrDRBGSeedLen]...)
	out := make([]byte, 0, n+aes.BlockSize)
	for len(out) < n {
		b.Encrypt(x, x)
		out = append(out, x...)
	}
	return out[:n], nil
}

func (c *ctrDRBG) update(provided []byte) error {
	temp := make([]byte, 0, ctrDRBGSeedLen+aes.BlockSize)
	var blk [16]byte
	for len(temp) < ctrDRBGSeedLen {
		incrementCounter(c.v[:], aes.BlockSize)
		c.block.Encrypt(blk[:], c.v[:])
		temp = append(temp, blk[:]...)
	}
	temp = temp[:ctrDRBGSeedLen]
	xorBytes(temp, temp, provided)
	Zeroize(c.key)
	c.key = append(c.key[:0], temp[:ctrDRBGKeyLen]...)
	copy(c.v[:], temp[ctrDRBGKeyLen:])
	Zeroize(temp)
	b, err := newAES(c.key)
	if err != nil {
		return err
	}
	c.block = b
	return nil
}

func (c *ctrDRBG) instantiate(entropy, nonce, pers []byte) error {
	seed, err := blockCipherDF(ctrDRBGSeedLen, entropy, nonce, pers)
	if err != nil {
		return err
	}
	defer Zeroize(seed)
	c.key = make([]byte, ctrDRBGKeyLen)
	c.v = [16]byte{}
	if c.block, err = newAES(c.key); err != nil {
		return err
	}
	return c.update(seed)
}

func (c *ctrDRBG) reseed(entropy, additional []byte) error {
	seed, err := blockCipherDF(ctrDRBGSeedLen, entropy, additional)
	if err != nil {
		return err
	}
	defer Zeroize(seed)
	return c.update(seed)
}

func (c *ctrDRBG) generate(dst, additional []byte, _ uint64) error {
	add := make([]byte, ctrDRBGSeedLen)
	if len(additional) > 0 {
		var err error
		if add, err = blockCipherDF(ctrDRBGSeedLen, additional); err != nil {
			return err
		}
		if err := c.update(add); err != nil {
			Zeroize(add)
			return err
		}
	}
	defer Zeroize(add)
	var blk [16]byte
	for off := 0; off < len(dst); {
		incrementCounter(c.v[:], aes.BlockSize)
		c.block.Encrypt(blk[:], c.v[:])
		off += copy(dst[off:], blk[:])
	}
	Zeroize(blk[:])
	return c.update(add)
}

func (c *ctrDRBG) wipe() {
	Zeroize(c.key)
	Zeroize(c.v[:])
}
