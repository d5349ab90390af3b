package domain

import "errors"

// ErrNoSurface indicates a redirect was produced but no display surface is bound
var ErrNoSurface = errors.New("no display surface bound")

// ErrQueueFull indicates the dispatcher queue cannot take another request
var ErrQueueFull = errors.New("request queue is full")

// ErrEmptyOutput indicates the archive tool produced no bytes
var ErrEmptyOutput = errors.New("archive tool produced no output")
