// Package redis establishes the Redis connection used for short-lived
// caching (public plan listings). The billing state machine itself never
// reads from the cache; losing Redis only degrades plan listing latency.
package redis
