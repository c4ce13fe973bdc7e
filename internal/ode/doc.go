// Package ode integrates systems of ordinary differential equations with an
// adaptive Dormand–Prince 5(4) Runge–Kutta scheme, returning the state at a
// caller-chosen grid of output times.
package ode
