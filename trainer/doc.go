// Package trainer provides high-level training orchestration for tacotron models.
// It runs gradient descent over batch generators with a decaying learning rate,
// periodic checkpoints and resumption.
package trainer
