package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const registryABIJSON = `[
 {"type":"function","name":"registerInstitution","stateMutability":"nonpayable","inputs":[{"name":"_institution","type":"address"},{"name":"_name","type":"string"}],"outputs":[]},
 {"type":"function","name":"removeInstitution","stateMutability":"nonpayable","inputs":[{"name":"_institution","type":"address"}],"outputs":[]},
 {"type":"function","name":"getInstitution","stateMutability":"view","inputs":[{"name":"_institution","type":"address"}],"outputs":[{"name":"name","type":"string"},{"name":"isActive","type":"bool"}]},
 {"type":"function","name":"isAuthorized","stateMutability":"view","inputs":[{"name":"_institution","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"getAllInstitutions","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
 {"type":"event","name":"InstitutionRegistered","anonymous":false,"inputs":[{"name":"institution","type":"address","indexed":true},{"name":"name","type":"string","indexed":false}]},
 {"type":"event","name":"InstitutionRemoved","anonymous":false,"inputs":[{"name":"institution","type":"address","indexed":true}]}
]`

const certificateABIJSON = `[
 {"type":"function","name":"issueCertificate","stateMutability":"nonpayable","inputs":[{"name":"student","type":"address"},{"name":"nameHash","type":"bytes32"},{"name":"emailHash","type":"bytes32"},{"name":"course","type":"string"},{"name":"enrollmentDate","type":"uint256"},{"name":"ipfsHash","type":"string"},{"name":"dataHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"revokeCertificate","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"reason","type":"string"}],"outputs":[]},
 {"type":"function","name":"getCertificate","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"issuer","type":"address"},{"name":"studentNameHash","type":"bytes32"},{"name":"studentEmailHash","type":"bytes32"},{"name":"course","type":"string"},{"name":"issueDate","type":"uint256"},{"name":"enrollmentDate","type":"uint256"},{"name":"isValid","type":"bool"},{"name":"ipfsHash","type":"string"},{"name":"revokeReason","type":"string"}]}]},
 {"type":"function","name":"getCertificateByHash","stateMutability":"view","inputs":[{"name":"dataHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
 {"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]},
 {"type":"event","name":"CertificateIssued","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"issuer","type":"address","indexed":true},{"name":"student","type":"address","indexed":true},{"name":"dataHash","type":"bytes32","indexed":false}]},
 {"type":"event","name":"CertificateRevoked","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"reason","type":"string","indexed":false}]}
]`

var (
	registryABI    = mustParseABI(registryABIJSON)
	certificateABI = mustParseABI(certificateABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
