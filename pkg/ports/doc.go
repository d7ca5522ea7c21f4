/*
Package ports defines the driven ports (interfaces) for the Parley engine.

These interfaces decouple the orchestration core from external
implementations, allowing sessions to be persisted to various storage
backends.

# Key Interfaces

  - SnapshotStore: Responsible for persisting and loading session Snapshots.
  - DistributedLocker: Provides distributed locking for handling concurrent
    session access across replicas.
*/
package ports
