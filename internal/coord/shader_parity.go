package coord

import "math"

// tileForLonLatShaderForm computes the same tile coordinate as
// TileForLonLat but follows the arithmetic shape a GLSL vertex shader
// would use to place the camera's focus tile: normalized Mercator
// coordinates in [0,1)^2 first, then a single scale-and-floor. The two
// implementations must agree everywhere; mercator_test.go checks that
// directly so a shader port of this package can be cross-checked
// against the Go reference without a GPU.
func tileForLonLatShaderForm(lon, lat float64, zoom uint8) (x, y int32) {
	lat = clampLat(lat)

	u := (lon + 180.0) / 360.0
	latRad := lat * math.Pi / 180.0
	v := 0.5 - math.Log(math.Tan(math.Pi/4.0+latRad/2.0))/(2.0*math.Pi)

	n := math.Exp2(float64(zoom))
	maxTile := int32(n) - 1
	x = clampTile(int32(math.Floor(u*n)), maxTile)
	y = clampTile(int32(math.Floor(v*n)), maxTile)
	return
}
