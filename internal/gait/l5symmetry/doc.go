// Package l5symmetry owns Layer 5 (Symmetry) of the gait pipeline.
//
// Responsibilities: duty factor per quadrant, pairwise symmetry indices,
// the Gait Symmetry Assessment, the score policy that maps it to a 1-5
// rating with a recommendation, and footstrike detection on keypoint
// trajectories.
// Key types: Policy, Assessment, QuadrantSignals, KeypointGroups.
//
// Dependency rule: L5 may depend on L1-L4 and package gait, never on L6.
package l5symmetry
