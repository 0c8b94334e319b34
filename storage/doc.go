// Package storage provides read access to genesis material (genesis.blob,
// genesis_waypoint and friends) across several backend types.
//
// # Supported Sources
//
//   - GitHubSource: a genesis repository, addressed by org/repo coordinates
//   - FileSource: a local directory, e.g. an existing checkout
//   - S3Source: an S3 or S3-compatible bucket prefix
//   - IPFSSource: a directory published on IPFS
//   - VaultSource: a HashiCorp Vault KV v2 path
//
// MultiSource chains several sources and returns the first successful fetch.
//
// # Location URIs
//
// SourceFactory builds sources from URIs:
//
//	github://0LNetworkCommunity/genesis-archive?ref=main
//	file:///var/genesis/
//	s3://bucket/genesis/?region=eu-west-1
//	ipfs://127.0.0.1:5001/bafy.../genesis
//	vault://vault.internal:8200/secret/genesis
//
// # Usage Example
//
//	factory := storage.NewSourceFactory(logger)
//	source, err := factory.CreateMultiSource([]string{
//	    storage.GitHubURI(org, repo),
//	    "s3://genesis-mirror/" + repo,
//	})
//	if err != nil {
//	    return err
//	}
//	blob, err := source.Fetch(ctx, "genesis.blob")
package storage
