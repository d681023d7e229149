package server

import (
	"fmt"
	"net/http"
)

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Chat relay is running!")
}

// TestPageHandler serves an HTML page that joins the chat with a display name,
// sends messages and typing notices, and renders every event it receives.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        button:disabled { background-color: #999; cursor: default; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        #typing { color: #888; font-style: italic; min-height: 1.2em; }
    </style>
</head>
<body>
    <h1>Chat Relay Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>
    <div id="online"></div>

    <div>
        <input type="text" id="nameInput" placeholder="Your name">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="messages"></div>
    <div id="typing"></div>

    <script>
        let ws = null;
        let typingTimer = null;
        let typing = false;
        const messagesDiv = document.getElementById('messages');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');
        const onlineDiv = document.getElementById('online');
        const typingDiv = document.getElementById('typing');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.margin = '5px 0';
            line.style.color = color;
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            nameInput.disabled = connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function send(frame) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify(frame));
            }
        }

        function connect() {
            const name = nameInput.value.trim() || 'guest';
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws/chat');

            ws.onopen = function() {
                updateStatus(true);
                send({type: 'join', username: name});
            };

            ws.onmessage = function(event) {
                const ev = JSON.parse(event.data);
                onlineDiv.textContent = 'Online: ' + ev.onlineUsers;
                const time = new Date(ev.timestamp).toLocaleTimeString();
                switch (ev.type) {
                    case 'message':
                        addLine('[' + time + '] ' + ev.username + ': ' + ev.message, 'black');
                        break;
                    case 'typing':
                        typingDiv.textContent = ev.message;
                        break;
                    default:
                        addLine('[' + time + '] ' + ev.message, 'gray');
                }
            };

            ws.onclose = function() {
                addLine('Connection closed', 'gray');
                updateStatus(false);
                typingDiv.textContent = '';
                ws = null;
            };

            ws.onerror = function() {
                addLine('Connection error', 'red');
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function setTyping(value) {
            if (typing === value) {
                return;
            }
            typing = value;
            send({type: 'typing', username: nameInput.value.trim() || 'guest', isTyping: value});
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (!text) {
                return;
            }
            send({type: 'message', username: nameInput.value.trim() || 'guest', message: text});
            messageInput.value = '';
            setTyping(false);
        }

        messageInput.addEventListener('input', function() {
            setTyping(true);
            clearTimeout(typingTimer);
            typingTimer = setTimeout(function() { setTyping(false); }, 1500);
        });

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
