package l2motion

import "image/color"

var colorOn = color.Gray{Y: 255}
