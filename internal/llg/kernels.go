package llg

// Damping adds the Gilbert damping torque -αγ/(1+α²) · m × (m × H) to dm.
func Damping(alpha, gamma float64,
	mx, my, mz float64,
	hx, hy, hz float64,
	dmx, dmy, dmz *float64) {
	coeff := -alpha * gamma / (1 + alpha*alpha)
	mm := mx*mx + my*my + mz*mz
	mh := mx*hx + my*hy + mz*hz

	// m × (m × H) = m (m·H) - H (m·m)
	*dmx += coeff * (mx*mh - hx*mm)
	*dmy += coeff * (my*mh - hy*mm)
	*dmz += coeff * (mz*mh - hz*mm)
}

// Precession adds the precession torque -γ/(1+α²) · m × H to dm.
func Precession(alpha, gamma float64,
	mx, my, mz float64,
	hx, hy, hz float64,
	dmx, dmy, dmz *float64) {
	coeff := -gamma / (1 + alpha*alpha)

	*dmx += coeff * (my*hz - mz*hy)
	*dmy += coeff * (mz*hx - mx*hz)
	*dmz += coeff * (mx*hy - my*hx)
}

// Relaxation adds c · (1 - m·m) · m to dm, pulling |m| back towards one.
func Relaxation(c float64,
	mx, my, mz float64,
	dmx, dmy, dmz *float64) {
	f := c * (1 - (mx*mx + my*my + mz*mz))

	*dmx += f * mx
	*dmy += f * my
	*dmz += f * mz
}
