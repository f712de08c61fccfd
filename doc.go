// Package crypto is a provider-dispatch core for symmetric and asymmetric
// cryptography with explicit object lifecycles.
//
// Every operation starts from a GlobalContext, which owns a registry of
// providers keyed by Capability (class, algorithm, variant) together with
// the allocator, clock, comparer and entropy callbacks the core uses.
// Objects form a strict ownership chain:
//
//	GlobalContext -> RNG -> Params -> Key -> context
//
// A resource cannot be destroyed while something created from it is still
// alive; Destroy returns ErrResourceInUse instead. Handles are generation
// checked, so a stale object is reported as a bad-object error and never
// touches recycled state.
//
// # Quick Start
//
//	gc, err := crypto.CreateDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := crypto.RegisterSoftwareProviders(gc); err != nil {
//		log.Fatal(err)
//	}
//
//	rng, _ := gc.CreateRNG(crypto.AlgHMACDRBG, nil)
//	params, _ := gc.CreateBlockCipherParams(crypto.AlgAES, crypto.CTRMode(128), 16,
//		&crypto.ParamsOptions{RNG: rng})
//	key, _ := params.GenerateKey(256, nil)
//
//	iv := make([]byte, params.IVLen())
//	_ = rng.GetBytes(iv, nil)
//	enc, _ := key.NewCipherContext(crypto.Encrypt, iv)
//	ciphertext, _ := enc.UpdateAlloc(plaintext)
//	_ = enc.End()
//
//	_ = enc.Destroy()
//	_ = key.Destroy()
//	_ = params.Destroy()
//	_ = rng.Destroy()
//	_ = gc.Destroy()
//
// # Buffer Sizing
//
// Operations producing output take a caller buffer. A nil buffer reports the
// required size without side effects, a short one fails with
// ErrBufferTooSmall and the required size, and a large enough one is filled.
// The *Alloc variants return a freshly allocated slice instead.
//
// # Modes
//
// Block cipher parameters carry a Mode: ECB, CBC, CFB128, CFB8, OFB128,
// CTR with a counter width, XTS with a data unit size, and RFC 3394 key
// wrap. Authenticated encryption is offered as CCM, CCM* and GCM through
// AEADContext, and MACs as HMAC and CMAC through MACContext.
//
// # Errors
//
// Every error wraps one of the exported sentinels, so errors.Is works, and
// carries a structured github.com/agilira/go-errors value with a stable
// code. StatusOf maps an error to its integer Status.
//
// # Concurrency
//
// The GlobalContext registry and the lifecycle arena are safe for
// concurrent use. Params, keys and contexts are not; an RNG serializes its
// own use through its RNGLock.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package crypto
