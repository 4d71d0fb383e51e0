// Package amb provides the monitor and control bus slave stack.
//
// The slave decodes CAN frames addressed to this node into Messages,
// dispatches them to handlers registered over relative address (RCA)
// ranges, and encodes monitor replies back into frames.
package amb
