// Package discord connects the conversation engine to Discord. Menus become
// message components and button presses arrive as component interactions
// whose custom id is the action token.
package discord
