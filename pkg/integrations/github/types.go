package github

// License is the license file GitHub detected for a repository.
// Found is false when the repository has none or does not exist; such
// results are cached too, so a crate without an upstream license is not
// looked up on every build.
type License struct {
	Found bool   `json:"found"`
	SPDX  string `json:"spdx,omitempty"`
	Path  string `json:"path,omitempty"`
	Text  string `json:"text,omitempty"`
}

// licenseResponse is the GitHub API response of GET /repos/{owner}/{repo}/license.
type licenseResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	License  struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}
