package templates

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1f2933; }
.uploader { max-width: 36rem; }
.uploader-description { display: block; margin-bottom: .5rem; font-weight: 600; }
.uploader-capacity { display: block; color: #616e7c; margin: .25rem 0; }
.uploader-items { list-style: none; padding: 0; }
.item { display: flex; gap: .75rem; align-items: center; padding: .4rem 0; border-bottom: 1px solid #e4e7eb; }
.item-name { flex: 1; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
.item-status { color: #616e7c; }
.phase-failed .item-status { color: #ba2525; }
.phase-succeeded .item-status { color: #207227; }
.alert-error { background: #ffe3e3; color: #8a041a; padding: .5rem; margin: .5rem 0; }
`

const script = `
(function () {
  var root = document.getElementById("uploader");
  var input = document.getElementById("uploader-input");
  var list = document.getElementById("uploader-items");
  var alertBox = document.getElementById("uploader-alert");
  var base = "/api/sessions/" + encodeURIComponent(root.dataset.session);

  function showError(body) {
    alertBox.textContent = "";
    if (!body || !body.message) { return; }
    var div = document.createElement("div");
    div.className = "alert alert-error";
    div.textContent = body.message + (body.action ? " " + body.action : "");
    alertBox.appendChild(div);
  }

  function request(method, path, body) {
    return fetch(base + path, { method: method, body: body, headers: { "Accept": "application/json" } })
      .then(function (res) {
        if (res.ok) { showError(null); return res.json().catch(function () { return null; }); }
        return res.json().then(showError, function () { showError({ message: res.statusText }); });
      })
      .catch(function (err) { showError({ message: String(err) }); });
  }

  function render(items) {
    list.textContent = "";
    items.forEach(function (v) {
      var li = document.createElement("li");
      li.className = "item phase-" + v.phase;
      li.dataset.name = v.name;
      var name = document.createElement("span");
      name.className = "item-name";
      name.textContent = v.display_name;
      var status = document.createElement("span");
      status.className = "item-status";
      status.textContent = v.status;
      li.appendChild(name);
      li.appendChild(status);
      if (v.can_retry) { li.appendChild(button("retry", "Retry")); }
      if (v.can_delete) { li.appendChild(button("delete", "Delete")); }
      list.appendChild(li);
    });
  }

  function button(action, label) {
    var b = document.createElement("button");
    b.type = "button";
    b.dataset.action = action;
    b.textContent = label;
    return b;
  }

  list.addEventListener("click", function (e) {
    var action = e.target.dataset && e.target.dataset.action;
    if (!action) { return; }
    var name = encodeURIComponent(e.target.closest("li").dataset.name);
    if (action === "delete") { request("DELETE", "/files/" + name); }
    if (action === "retry") { request("POST", "/files/" + name + "/retry"); }
  });

  function send(files) {
    if (!files || !files.length || input.disabled) { return; }
    var form = new FormData();
    for (var i = 0; i < files.length; i++) {
      form.append(input.name, files[i]);
    }
    request("POST", "/files", form).then(function (res) {
      if (res && res.disallowed && res.disallowed.length) {
        showError({ message: "This file type is not accepted: " + res.disallowed.join(", ") });
      }
    });
  }

  input.addEventListener("change", function () {
    var files = Array.prototype.slice.call(input.files);
    input.value = "";
    send(files);
  });

  root.addEventListener("dragover", function (e) { e.preventDefault(); });
  root.addEventListener("drop", function (e) {
    e.preventDefault();
    send(e.dataTransfer && e.dataTransfer.files);
  });

  var events = new EventSource(base + "/events");
  events.addEventListener("items", function (e) { render(JSON.parse(e.data)); });
  events.addEventListener("closed", function () {
    events.close();
    input.disabled = true;
    showError({ message: "This upload session has ended", action: "Reload the page to start a new one" });
  });
})();
`
