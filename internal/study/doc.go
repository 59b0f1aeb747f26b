// Package study holds the counterbalanced condition schedule of the keypad
// study, the keypad geometry used to scale the keypad per condition, and the
// break timer between PIN blocks.
package study
