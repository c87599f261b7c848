// Package services manages the plugin-provided services of a project
// context.
//
// A [Service] is started during context bring-up, told when the context is
// fully loaded, and stopped during shutdown. The [Manager] starts services
// in registry priority order and stops the ones that started in reverse.
//
// # Status
//
// Each service moves through pending, running, and stopped, or to failed
// if Start or Stop returns an error. [Callbacks] observe every transition.
package services
