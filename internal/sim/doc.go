// Package sim drives two motion controller hands headlessly: tracking, grab
// and teleport input come from a timed script instead of a headset.
package sim
