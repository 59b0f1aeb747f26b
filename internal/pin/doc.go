// Package pin generates and validates the digit sequences ("PINs") a
// participant enters on the keypad. Each digit is a target index.
//
// The generator holds no reference to targets or techniques and draws from
// an injected random source only.
package pin
