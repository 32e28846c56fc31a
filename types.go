package main

import (
	"image"
)

type Size = image.Point

type Smp = float64
