//go:build windows && opencl

package main

// Hybrid-graphics drivers read these exports to run the process on the
// discrete GPU instead of the integrated one.

/*
#include <stdint.h>

__declspec(dllexport) uint32_t NvOptimusEnablement = 1;
__declspec(dllexport) uint32_t AmdPowerXpressRequestHighPerformance = 1;
*/
import "C"
